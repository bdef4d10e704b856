package werrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "process-not-found", ProcessNotFound.String())
	assert.Equal(t, "unknown-os-error", Kind(999).String())
}

func TestErrorWrapsAndUnwraps(t *testing.T) {
	wrapped := errors.New("access denied")
	e := New(HandleOpenDenied, "wintarget.Open", wrapped)

	assert.True(t, errors.Is(e, wrapped), "errors.Is should see through Unwrap to the wrapped error")
	assert.NotEmpty(t, e.Error())
}

func TestErrorWithoutWrappedErr(t *testing.T) {
	e := New(ModuleNotFoundInTarget, "remote.FindModule", nil)
	assert.Nil(t, e.Unwrap())
	assert.Equal(t, "remote.FindModule: module-not-found-in-target", e.Error())
}

func TestIsMatchesOnlyTheGivenKind(t *testing.T) {
	e := New(RemoteAllocFailed, "remote.Allocate", nil)
	assert.True(t, Is(e, RemoteAllocFailed))
	assert.False(t, Is(e, RemoteWriteShort))
	assert.False(t, Is(errors.New("plain"), RemoteAllocFailed))
}
