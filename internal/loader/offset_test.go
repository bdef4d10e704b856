package loader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/winjector/internal/remote"
)

type fakeSelfResolver struct {
	base    uintptr
	procs   map[string]uintptr
	baseErr error
	procErr error
}

func (f fakeSelfResolver) KernelBase() (uintptr, error) {
	if f.baseErr != nil {
		return 0, f.baseErr
	}
	return f.base, nil
}

func (f fakeSelfResolver) ProcAddress(routine string) (uintptr, error) {
	if f.procErr != nil {
		return 0, f.procErr
	}
	addr, ok := f.procs["LoadLibraryA"]
	if !ok {
		return 0, errors.New("not exported")
	}
	_ = routine
	return addr, nil
}

func TestResolveOffsetAndInTargetAddress(t *testing.T) {
	sr := fakeSelfResolver{
		base:  0x77000000,
		procs: map[string]uintptr{"LoadLibraryA": 0x77001234},
	}

	offset, err := ResolveOffset(sr, "LoadLibraryA")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x1234), offset)

	targetBase := remote.Address(0x6F000000)
	got := InTargetAddress(targetBase, offset)
	assert.Equal(t, remote.Address(0x6F001234), got)
}

func TestResolveOffsetPropagatesProcAddressFailure(t *testing.T) {
	sr := fakeSelfResolver{base: 0x77000000, procErr: errors.New("export not found")}
	_, err := ResolveOffset(sr, "LoadLibraryA")
	assert.Error(t, err)
}
