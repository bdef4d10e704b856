//go:build windows

package trampoline

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// ProcessLocalMemory implements Memory against the payload's own address
// space via VirtualProtect (not the Ex variant — this is the process the
// payload already runs in).
type ProcessLocalMemory struct{}

func (ProcessLocalMemory) Protect(addr uintptr, readOnly bool) error {
	protect := uint32(windows.PAGE_READWRITE)
	if readOnly {
		protect = windows.PAGE_READONLY
	}
	var oldProtect uint32
	return windows.VirtualProtect(addr, unsafe.Sizeof(uintptr(0)), protect, &oldProtect)
}

func (ProcessLocalMemory) ReadPointer(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func (ProcessLocalMemory) WritePointer(addr uintptr, value uintptr) error {
	*(*uintptr)(unsafe.Pointer(addr)) = value
	return nil
}
