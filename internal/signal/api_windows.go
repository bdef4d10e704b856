//go:build windows

package signal

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/remote"
)

// winAPI is the production API implementation for the handshake,
// grounded directly in CreateFileMapping/MapViewOfFile/CreateEvent/
// DuplicateHandle, the same golang.org/x/sys/windows surface
// internal/remote uses for cross-process memory operations.
type winAPI struct{}

// NewWindowsAPI returns the real, OS-backed API.
func NewWindowsAPI() API {
	return winAPI{}
}

func (winAPI) CreateNamedMapping(name string, size uintptr) (MappingHandle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(size), namePtr)
	if err != nil {
		return 0, err
	}
	return MappingHandle(h), nil
}

func (winAPI) MapView(m MappingHandle, size uintptr) (ViewAddr, error) {
	addr, err := windows.MapViewOfFile(windows.Handle(m), windows.FILE_MAP_WRITE, 0, 0, size)
	if err != nil {
		return 0, err
	}
	return ViewAddr(addr), nil
}

func (winAPI) UnmapView(v ViewAddr) error {
	return windows.UnmapViewOfFile(uintptr(v))
}

func (winAPI) CloseMapping(m MappingHandle) error {
	return windows.CloseHandle(windows.Handle(m))
}

func (winAPI) CreateManualResetEvent() (EventHandle, error) {
	h, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, err
	}
	return EventHandle(h), nil
}

func (winAPI) DuplicateEventToProcess(e EventHandle, target remote.ProcessHandle) (EventHandle, error) {
	self, err := windows.GetCurrentProcess()
	if err != nil {
		return 0, err
	}
	var dup windows.Handle
	err = windows.DuplicateHandle(self, windows.Handle(e), windows.Handle(target), &dup, 0, false, windows.DUPLICATE_SAME_ACCESS)
	if err != nil {
		return 0, err
	}
	return EventHandle(dup), nil
}

func (winAPI) CloseEvent(e EventHandle) error {
	return windows.CloseHandle(windows.Handle(e))
}

func (winAPI) WriteHandleValue(v ViewAddr, h EventHandle) error {
	*(*uintptr)(unsafe.Pointer(uintptr(v))) = uintptr(h)
	return nil
}

func (winAPI) WaitEvent(e EventHandle, timeoutMs uint32) (bool, error) {
	status, err := windows.WaitForSingleObject(windows.Handle(e), timeoutMs)
	if err != nil {
		return false, err
	}
	switch status {
	case uint32(windows.WAIT_OBJECT_0):
		return false, nil
	case uint32(windows.WAIT_TIMEOUT):
		return true, nil
	default:
		return false, windows.ERROR_GEN_FAILURE
	}
}

func (winAPI) OpenNamedMapping(name string, size uintptr) (MappingHandle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ, false, namePtr)
	if err != nil {
		return 0, err
	}
	return MappingHandle(h), nil
}

func (winAPI) ReadHandleValue(v ViewAddr) (EventHandle, error) {
	return EventHandle(*(*uintptr)(unsafe.Pointer(uintptr(v)))), nil
}

func (winAPI) SetEvent(e EventHandle) error {
	return windows.SetEvent(windows.Handle(e))
}
