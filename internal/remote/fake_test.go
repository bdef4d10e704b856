package remote

import "errors"

// fakeAPI is a hand-written double for API, in the spirit of the
// teacher's mockery-generated mocks/*.go: it records calls and lets each
// test script the exact failure it wants, without a live target process.
type fakeAPI struct {
	mem map[Address][]byte
	nextAddr Address

	allocErr   error
	writeShort bool
	writeErr   error
	protectErr error
	readErr    error
	readCorrupt bool

	threadCreateErr error
	waitTimeout     bool
	waitErr         error
	exitCode        uint32
	exitCodeErr     error

	modules    []ModuleRecord
	enumErr    error

	suspendCount uint32
	resumeErr    error
	suspendErr   error

	freedAddrs   []Address
	closedThreads []ThreadHandle
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mem: make(map[Address][]byte), nextAddr: 0x1000}
}

func (f *fakeAPI) VirtualAllocEx(proc ProcessHandle, size uintptr) (Address, error) {
	if f.allocErr != nil {
		return 0, f.allocErr
	}
	addr := f.nextAddr
	f.nextAddr += Address(size) + 0x1000
	f.mem[addr] = make([]byte, size)
	return addr, nil
}

func (f *fakeAPI) VirtualFreeEx(proc ProcessHandle, addr Address) error {
	f.freedAddrs = append(f.freedAddrs, addr)
	delete(f.mem, addr)
	return nil
}

func (f *fakeAPI) VirtualProtectEx(proc ProcessHandle, addr Address, size uintptr, readOnly bool) error {
	return f.protectErr
}

func (f *fakeAPI) WriteProcessMemory(proc ProcessHandle, addr Address, data []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	buf, ok := f.mem[addr]
	if !ok || len(buf) < len(data) {
		return 0, errors.New("write out of bounds")
	}
	copy(buf, data)
	if f.writeShort {
		return len(data) - 1, nil
	}
	return len(data), nil
}

func (f *fakeAPI) ReadProcessMemory(proc ProcessHandle, addr Address, size int) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	buf, ok := f.mem[addr]
	if !ok {
		return nil, errors.New("read out of bounds")
	}
	out := append([]byte(nil), buf[:size]...)
	if f.readCorrupt && len(out) > 0 {
		out[0] ^= 0xFF
	}
	return out, nil
}

func (f *fakeAPI) CreateRemoteThread(proc ProcessHandle, startAddr, arg Address) (ThreadHandle, error) {
	if f.threadCreateErr != nil {
		return 0, f.threadCreateErr
	}
	return ThreadHandle(0xABCD), nil
}

func (f *fakeAPI) WaitForSingleObject(h ThreadHandle, timeoutMs uint32) (bool, error) {
	return f.waitTimeout, f.waitErr
}

func (f *fakeAPI) GetExitCodeThread(h ThreadHandle) (uint32, error) {
	return f.exitCode, f.exitCodeErr
}

func (f *fakeAPI) CloseThread(h ThreadHandle) error {
	f.closedThreads = append(f.closedThreads, h)
	return nil
}

func (f *fakeAPI) EnumModules(proc ProcessHandle) ([]ModuleRecord, error) {
	return f.modules, f.enumErr
}

func (f *fakeAPI) ResumeThread(h ThreadHandle) (uint32, error) {
	if f.resumeErr != nil {
		return 0, f.resumeErr
	}
	if f.suspendCount > 0 {
		f.suspendCount--
	}
	return f.suspendCount + 1, nil
}

func (f *fakeAPI) SuspendThread(h ThreadHandle) (uint32, error) {
	if f.suspendErr != nil {
		return 0, f.suspendErr
	}
	prev := f.suspendCount
	f.suspendCount++
	return prev, nil
}

var _ API = (*fakeAPI)(nil)
