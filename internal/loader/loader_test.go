package loader

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/werrors"
)

// fakeAPI is a hand-written double for remote.API, independent of
// internal/remote's own fake so this package's tests don't need to
// reach into another package's unexported test helper.
type fakeAPI struct {
	mem map[remote.Address][]byte

	threadCreateErr error
	exitCode        uint32
	waitTimeout     bool

	modules []remote.ModuleRecord
	enumErr error

	readErr error

	suspendCount  uint32
	resumeCalls   int
	resumeErr     error
	suspendErr    error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mem: make(map[remote.Address][]byte)}
}

func (f *fakeAPI) VirtualAllocEx(proc remote.ProcessHandle, size uintptr) (remote.Address, error) {
	return 0, errors.New("not used")
}
func (f *fakeAPI) VirtualFreeEx(proc remote.ProcessHandle, addr remote.Address) error { return nil }
func (f *fakeAPI) VirtualProtectEx(proc remote.ProcessHandle, addr remote.Address, size uintptr, readOnly bool) error {
	return nil
}
func (f *fakeAPI) WriteProcessMemory(proc remote.ProcessHandle, addr remote.Address, data []byte) (int, error) {
	return 0, errors.New("not used")
}
func (f *fakeAPI) ReadProcessMemory(proc remote.ProcessHandle, addr remote.Address, size int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	buf, ok := f.mem[addr]
	if !ok {
		return nil, errors.New("read out of bounds")
	}
	return buf[:size], nil
}
func (f *fakeAPI) CreateRemoteThread(proc remote.ProcessHandle, startAddr, arg remote.Address) (remote.ThreadHandle, error) {
	if f.threadCreateErr != nil {
		return 0, f.threadCreateErr
	}
	return remote.ThreadHandle(1), nil
}
func (f *fakeAPI) WaitForSingleObject(h remote.ThreadHandle, timeoutMs uint32) (bool, error) {
	return f.waitTimeout, nil
}
func (f *fakeAPI) GetExitCodeThread(h remote.ThreadHandle) (uint32, error) { return f.exitCode, nil }
func (f *fakeAPI) CloseThread(h remote.ThreadHandle) error                { return nil }
func (f *fakeAPI) ResumeThread(h remote.ThreadHandle) (uint32, error) {
	if f.resumeErr != nil {
		return 0, f.resumeErr
	}
	f.resumeCalls++
	if f.suspendCount > 0 {
		f.suspendCount--
	}
	return f.suspendCount, nil
}
func (f *fakeAPI) SuspendThread(h remote.ThreadHandle) (uint32, error) {
	if f.suspendErr != nil {
		return 0, f.suspendErr
	}
	prev := f.suspendCount
	f.suspendCount++
	if len(f.modules) > 0 {
		// nothing to do here: tests make kernel32 appear from their
		// sleep hook, not from SuspendThread
	}
	return prev, nil
}
func (f *fakeAPI) EnumModules(proc remote.ProcessHandle) ([]remote.ModuleRecord, error) {
	return f.modules, f.enumErr
}

var _ remote.API = (*fakeAPI)(nil)

func TestLoadHappyPath(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 0x400000
	api.modules = []remote.ModuleRecord{{Name: "payload.dll", Base: 0x400000}}
	api.mem[0x400000] = []byte{'M', 'Z', 0, 0}

	res, err := Load(api, 1, 0x7FFE0000, 0x2000, "payload.dll")
	require.NoError(t, err)
	assert.Equal(t, remote.Address(0x400000), res.Payload.Base)
}

func TestLoadZeroExitCodeIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 0
	_, err := Load(api, 1, 0x7FFE0000, 0x2000, "payload.dll")
	assert.Error(t, err)
}

func TestLoadBadSignatureIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 0x400000
	api.modules = []remote.ModuleRecord{{Name: "payload.dll", Base: 0x400000}}
	api.mem[0x400000] = []byte{0, 0, 0, 0}

	_, err := Load(api, 1, 0x7FFE0000, 0x2000, "payload.dll")
	assert.True(t, werrors.Is(err, werrors.UnloadVerificationFailed))
}

func TestUnloadHappyPath(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 1
	api.modules = nil // payload already gone after FreeLibrary

	payload := remote.ModuleRecord{Name: "payload.dll", Base: 0x400000}
	assert.NoError(t, Unload(api, 1, 0x7FFE1000, payload))
}

func TestUnloadStillPresentIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 1
	api.modules = []remote.ModuleRecord{{Name: "payload.dll", Base: 0x400000}}

	payload := remote.ModuleRecord{Name: "payload.dll", Base: 0x400000}
	err := Unload(api, 1, 0x7FFE1000, payload)
	assert.True(t, werrors.Is(err, werrors.UnloadVerificationFailed))
}

func TestPollKernel32InTargetFindsAfterFewTicks(t *testing.T) {
	api := newFakeAPI()
	ticks := 0
	noSleep := func(time.Duration) {
		ticks++
		if ticks == 3 {
			api.modules = []remote.ModuleRecord{{Name: "kernel32.dll", Base: 0x77000000}}
		}
	}

	mod, err := pollKernel32(api, 1, remote.ThreadHandle(2), noSleep)
	require.NoError(t, err)
	assert.Equal(t, remote.Address(0x77000000), mod.Base)
	assert.Equal(t, 3, api.resumeCalls)
}

func TestPollKernel32PropagatesResumeError(t *testing.T) {
	api := newFakeAPI()
	api.resumeErr = errors.New("access denied")
	_, err := pollKernel32(api, 1, remote.ThreadHandle(2), func(time.Duration) {})
	assert.Error(t, err)
}
