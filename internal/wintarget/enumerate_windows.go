//go:build windows

package wintarget

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/werrors"
)

// EnumerateResult is the outcome of a process-table walk: the processes
// that could be described, plus a count of PIDs that refused to open
// (skipped silently, not fatal) and the last OS error observed while
// doing so, for diagnostics.
type EnumerateResult struct {
	Procs     []Descriptor
	Skipped   int
	LastError error
}

// Enumerate walks the live process table via a Toolhelp32 snapshot,
// producing a Descriptor for every process that can be opened with
// query-info + vm-read rights. Processes that refuse to open are counted
// and skipped rather than treated as fatal.
func Enumerate() (*EnumerateResult, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, werrors.New(werrors.Unknown, "wintarget.Enumerate", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(windows.SizeofProcessEntry32)

	result := &EnumerateResult{}

	if err := windows.Process32First(snap, &entry); err != nil {
		return nil, werrors.New(werrors.Unknown, "wintarget.Enumerate", err)
	}

	for {
		pid := entry.ProcessID
		if pid != 0 {
			h, openErr := windows.OpenProcess(
				windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ,
				false, pid)
			if openErr != nil {
				result.Skipped++
				result.LastError = openErr
			} else {
				name := syscall.UTF16ToString(entry.ExeFile[:])
				result.Procs = append(result.Procs, Descriptor{Pid: pid, Name: name})
				windows.CloseHandle(h)
			}
		}

		if err := windows.Process32Next(snap, &entry); err != nil {
			if err == syscall.ERROR_NO_MORE_FILES {
				break
			}
			return result, werrors.New(werrors.Unknown, "wintarget.Enumerate", err)
		}
	}

	return result, nil
}

// FullAccessRights is the right set required for the handle the rest of
// the injector operates through.
const FullAccessRights = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_CREATE_THREAD

// Open reopens pid with the full access-right set the injector needs for
// remote-memory and remote-thread operations. Absence of any of those
// rights is fatal.
func Open(pid uint32) (windows.Handle, error) {
	h, err := windows.OpenProcess(FullAccessRights, false, pid)
	if err != nil {
		return 0, werrors.New(werrors.HandleOpenDenied, "wintarget.Open", err)
	}
	return h, nil
}

// Find enumerates the process table and returns the PID of the first
// process whose name matches target. Returns werrors.ProcessNotFound if
// nothing matches.
func Find(target string) (uint32, error) {
	res, err := Enumerate()
	if err != nil {
		return 0, err
	}

	pid, ok := FindFirst(res.Procs, target)
	if !ok {
		return 0, werrors.New(werrors.ProcessNotFound, "wintarget.Find", nil)
	}

	return pid, nil
}
