// Package loader drives the injector side of the load/unload pipeline:
// resolving LoadLibraryA/FreeLibrary's in-target address via the
// kernel32-offset invariant, and spawning/verifying the remote load and
// unload threads.
package loader

import (
	"time"

	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/werrors"
)

const (
	// LoadWaitMs bounds the wait on the LoadLibraryA remote thread.
	LoadWaitMs uint32 = 1000
	// UnloadWaitMs bounds the wait on the FreeLibrary remote thread. Kept
	// symmetric with LoadWaitMs rather than using a much shorter bound —
	// FreeLibrary has no less work to do than LoadLibraryA.
	UnloadWaitMs uint32 = 1000

	kernelPollSleep    = time.Millisecond
	kernelPollMaxTries = 5000 // ~5s; loader mapping kernel32 this slowly indicates a stuck target
)

var dosSignature = []byte{'M', 'Z'}

// SelfResolver resolves, in the injector's own process, the address of a
// kernel32 routine and the base of kernel32 itself — both ordinary
// in-process pointers. ResolveOffset turns the pair into the Δ the
// kernel32-offset invariant exploits.
type SelfResolver interface {
	KernelBase() (uintptr, error)
	ProcAddress(routine string) (uintptr, error)
}

// ResolveOffset computes addr_of(routine, self) − base_of(kernel32, self).
func ResolveOffset(sr SelfResolver, routine string) (uintptr, error) {
	base, err := sr.KernelBase()
	if err != nil {
		return 0, werrors.New(werrors.Unknown, "loader.ResolveOffset.KernelBase", err)
	}
	addr, err := sr.ProcAddress(routine)
	if err != nil {
		return 0, werrors.New(werrors.RoutineNotExported, "loader.ResolveOffset.ProcAddress", err)
	}
	return addr - base, nil
}

// InTargetAddress applies the kernel32-offset invariant: the in-target
// address of a routine equals the target's kernel32 base plus the offset
// computed in the injector's own process.
func InTargetAddress(kernelBaseInTarget remote.Address, offset uintptr) remote.Address {
	return kernelBaseInTarget + remote.Address(offset)
}

// PollKernel32InTarget waits for kernel32 to appear in the target's
// module list, for the create-suspended mode where the loader may not
// have mapped it yet. It resumes the main thread for one tick, sleeps,
// re-suspends, and re-checks — the one place this system observes
// loader progress from outside.
func PollKernel32InTarget(api remote.API, proc remote.ProcessHandle, mainThread remote.ThreadHandle) (*remote.ModuleRecord, error) {
	return pollKernel32(api, proc, mainThread, time.Sleep)
}

func pollKernel32(api remote.API, proc remote.ProcessHandle, mainThread remote.ThreadHandle, sleep func(time.Duration)) (*remote.ModuleRecord, error) {
	for attempt := 0; attempt < kernelPollMaxTries; attempt++ {
		mod, err := remote.FindModule(api, proc, "kernel32.dll")
		if err == nil {
			return mod, nil
		}
		if !werrors.Is(err, werrors.ModuleNotFoundInTarget) {
			return nil, err
		}

		if _, err := api.ResumeThread(mainThread); err != nil {
			return nil, werrors.New(werrors.Unknown, "loader.pollKernel32.Resume", err)
		}
		sleep(kernelPollSleep)
		if _, err := api.SuspendThread(mainThread); err != nil {
			return nil, werrors.New(werrors.Unknown, "loader.pollKernel32.Suspend", err)
		}
	}
	return nil, werrors.New(werrors.ModuleNotFoundInTarget, "loader.pollKernel32", nil)
}

// Result carries what the injector needs after a successful load.
type Result struct {
	Payload remote.ModuleRecord
}

// Load spawns LoadLibraryA in the target with pathAddr as its argument,
// waits the bounded wait, and verifies the load by re-enumerating modules
// and checking the payload's DOS signature — never trusting the thread
// exit code alone, since on 64-bit Windows it is truncated to 32 bits.
func Load(api remote.API, proc remote.ProcessHandle, loadLibraryAddr, pathAddr remote.Address, payloadFileName string) (*Result, error) {
	th, err := remote.Spawn(api, proc, loadLibraryAddr, pathAddr, remote.Load)
	if err != nil {
		return nil, err
	}
	defer th.Close()

	if err := th.Wait(LoadWaitMs); err != nil {
		return nil, err
	}
	code, err := th.ExitCode()
	if err != nil {
		return nil, err
	}
	if code == 0 {
		return nil, werrors.New(werrors.ModuleNotFoundInTarget, "loader.Load", nil)
	}

	mod, err := remote.FindModule(api, proc, payloadFileName)
	if err != nil {
		return nil, err
	}
	sig, err := api.ReadProcessMemory(proc, mod.Base, len(dosSignature))
	if err != nil {
		return nil, werrors.New(werrors.RemoteReadMismatch, "loader.Load.verifySignature", err)
	}
	if string(sig) != string(dosSignature) {
		return nil, werrors.New(werrors.UnloadVerificationFailed, "loader.Load.verifySignature", nil)
	}

	return &Result{Payload: *mod}, nil
}

// Unload spawns FreeLibrary in the target with the payload's in-target
// base as its argument and verifies the module is gone afterward.
func Unload(api remote.API, proc remote.ProcessHandle, freeLibraryAddr remote.Address, payload remote.ModuleRecord) error {
	th, err := remote.Spawn(api, proc, freeLibraryAddr, payload.Base, remote.Unload)
	if err != nil {
		return err
	}
	defer th.Close()

	if err := th.Wait(UnloadWaitMs); err != nil {
		return err
	}
	code, err := th.ExitCode()
	if err != nil {
		return err
	}
	if code == 0 {
		return werrors.New(werrors.UnloadVerificationFailed, "loader.Unload", nil)
	}

	present, err := remote.ModulePresent(api, proc, payload.Name)
	if err != nil {
		return err
	}
	if present {
		return werrors.New(werrors.UnloadVerificationFailed, "loader.Unload.verifyAbsent", nil)
	}
	return nil
}
