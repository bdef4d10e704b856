//go:build windows

package wintarget

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/werrors"
)

// Spawned is a process created in a suspended state, ready for injection
// before its main thread ever runs.
type Spawned struct {
	Pid        uint32
	Process    windows.Handle
	MainThread windows.Handle
}

// CreateSuspended launches exePath with CREATE_SUSPENDED so the injector
// can act before the target's entry point, or even kernel32, has run.
func CreateSuspended(exePath string) (*Spawned, error) {
	cmdLine, err := windows.UTF16PtrFromString(exePath)
	if err != nil {
		return nil, werrors.New(werrors.Unknown, "wintarget.CreateSuspended", err)
	}

	var si windows.StartupInfo
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi windows.ProcessInformation

	err = windows.CreateProcess(
		nil, cmdLine, nil, nil, false,
		windows.CREATE_SUSPENDED, nil, nil, &si, &pi)
	if err != nil {
		return nil, werrors.New(werrors.Unknown, "wintarget.CreateSuspended", err)
	}

	return &Spawned{
		Pid:        pi.ProcessId,
		Process:    pi.Process,
		MainThread: pi.Thread,
	}, nil
}

// ResumeMain resumes the suspended main thread, idempotent in the sense
// that calling ResumeThread on an already-running thread is harmless —
// cleanup resumes the main thread exactly once in practice, but the OS
// call itself tolerates redundant calls.
func ResumeMain(mainThread windows.Handle) error {
	if _, err := windows.ResumeThread(mainThread); err != nil {
		return werrors.New(werrors.Unknown, "wintarget.ResumeMain", err)
	}
	return nil
}
