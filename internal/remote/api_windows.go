//go:build windows

package remote

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// golang.org/x/sys/windows wraps most kernel32 entry points we need, but
// stops short of the remote-process primitives (VirtualAllocEx,
// VirtualFreeEx, CreateRemoteThread, GetExitCodeThread) since the Go
// toolchain itself never calls them. Resolve those few through a lazy
// kernel32 handle, the same mechanism windows.NewLazySystemDLL exposes
// for exactly this situation.
var (
	kernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procVirtualAllocEx  = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx   = kernel32.NewProc("VirtualFreeEx")
	procCreateRemoteThr = kernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThr  = kernel32.NewProc("GetExitCodeThread")
	procSuspendThread   = kernel32.NewProc("SuspendThread")
	procResumeThread    = kernel32.NewProc("ResumeThread")
)

const invalidThreadCount = 0xFFFFFFFF

// winAPI is the production API implementation, backed directly by
// golang.org/x/sys/windows — the Windows analogue of the
// golang.org/x/sys/unix's ProcessVMReadv/Writev calls provide for
// cross-process memory access on Linux.
type winAPI struct{}

// NewWindowsAPI returns the real, OS-backed API.
func NewWindowsAPI() API {
	return &winAPI{}
}

func (winAPI) VirtualAllocEx(proc ProcessHandle, size uintptr) (Address, error) {
	r1, _, e1 := procVirtualAllocEx.Call(
		uintptr(proc), 0, size,
		uintptr(windows.MEM_COMMIT|windows.MEM_RESERVE),
		uintptr(windows.PAGE_READWRITE))
	if r1 == 0 {
		return 0, os.NewSyscallError("VirtualAllocEx", e1)
	}
	return Address(r1), nil
}

func (winAPI) VirtualFreeEx(proc ProcessHandle, addr Address) error {
	r1, _, e1 := procVirtualFreeEx.Call(uintptr(proc), uintptr(addr), 0, uintptr(windows.MEM_RELEASE))
	if r1 == 0 {
		return os.NewSyscallError("VirtualFreeEx", e1)
	}
	return nil
}

func (winAPI) VirtualProtectEx(proc ProcessHandle, addr Address, size uintptr, readOnly bool) error {
	protect := uint32(windows.PAGE_READWRITE)
	if readOnly {
		protect = windows.PAGE_READONLY
	}
	var oldProtect uint32
	return windows.VirtualProtectEx(windows.Handle(proc), uintptr(addr), size, protect, &oldProtect)
}

func (winAPI) WriteProcessMemory(proc ProcessHandle, addr Address, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var written uintptr
	err := windows.WriteProcessMemory(windows.Handle(proc), uintptr(addr), &data[0], uintptr(len(data)), &written)
	return int(written), err
}

func (winAPI) ReadProcessMemory(proc ProcessHandle, addr Address, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	var read uintptr
	err := windows.ReadProcessMemory(windows.Handle(proc), uintptr(addr), &buf[0], uintptr(size), &read)
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

func (winAPI) CreateRemoteThread(proc ProcessHandle, startAddr, arg Address) (ThreadHandle, error) {
	r1, _, e1 := procCreateRemoteThr.Call(
		uintptr(proc), 0, 0, uintptr(startAddr), uintptr(arg), 0, 0)
	if r1 == 0 {
		return 0, os.NewSyscallError("CreateRemoteThread", e1)
	}
	return ThreadHandle(r1), nil
}

func (winAPI) WaitForSingleObject(h ThreadHandle, timeoutMs uint32) (bool, error) {
	status, err := windows.WaitForSingleObject(windows.Handle(h), timeoutMs)
	if err != nil {
		return false, err
	}
	switch status {
	case uint32(windows.WAIT_OBJECT_0):
		return false, nil
	case uint32(windows.WAIT_TIMEOUT):
		return true, nil
	default:
		return false, syscall.Errno(status)
	}
}

func (winAPI) GetExitCodeThread(h ThreadHandle) (uint32, error) {
	var code uint32
	r1, _, e1 := procGetExitCodeThr.Call(uintptr(h), uintptr(unsafe.Pointer(&code)))
	if r1 == 0 {
		return 0, os.NewSyscallError("GetExitCodeThread", e1)
	}
	return code, nil
}

func (winAPI) CloseThread(h ThreadHandle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (winAPI) ResumeThread(h ThreadHandle) (uint32, error) {
	r1, _, e1 := procResumeThread.Call(uintptr(h))
	count := uint32(r1)
	if count == invalidThreadCount {
		return 0, os.NewSyscallError("ResumeThread", e1)
	}
	return count, nil
}

func (winAPI) SuspendThread(h ThreadHandle) (uint32, error) {
	r1, _, e1 := procSuspendThread.Call(uintptr(h))
	count := uint32(r1)
	if count == invalidThreadCount {
		return 0, os.NewSyscallError("SuspendThread", e1)
	}
	return count, nil
}

func (winAPI) EnumModules(proc ProcessHandle) ([]ModuleRecord, error) {
	pid, err := processIdOf(windows.Handle(proc))
	if err != nil {
		return nil, err
	}

	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(snap)

	var entry windows.ModuleEntry32
	entry.Size = uint32(windows.SizeofModuleEntry32)

	var mods []ModuleRecord
	if err := windows.Module32First(snap, &entry); err != nil {
		if err == windows.ERROR_NO_MORE_FILES {
			return mods, nil
		}
		return nil, err
	}

	for {
		name := syscall.UTF16ToString(entry.Module[:])
		mods = append(mods, ModuleRecord{
			Name: name,
			Base: Address(entry.ModBaseAddr),
		})

		if err := windows.Module32Next(snap, &entry); err != nil {
			if err == windows.ERROR_NO_MORE_FILES {
				break
			}
			return mods, err
		}
	}

	return mods, nil
}

func processIdOf(h windows.Handle) (uint32, error) {
	return windows.GetProcessId(h)
}
