//go:build windows

package loader

import "golang.org/x/sys/windows"

// winSelfResolver implements SelfResolver against the injector's own
// process, using the same kernel32 module handle and export table the
// target process will have mapped at a different base.
type winSelfResolver struct{}

// NewWindowsSelfResolver returns the real, OS-backed SelfResolver.
func NewWindowsSelfResolver() SelfResolver {
	return winSelfResolver{}
}

func (winSelfResolver) KernelBase() (uintptr, error) {
	name, err := windows.UTF16PtrFromString("kernel32.dll")
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, name, &h); err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

func (winSelfResolver) ProcAddress(routine string) (uintptr, error) {
	name, err := windows.UTF16PtrFromString("kernel32.dll")
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, name, &h); err != nil {
		return 0, err
	}
	return windows.GetProcAddress(h, routine)
}
