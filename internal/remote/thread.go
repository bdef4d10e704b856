package remote

import "github.com/nestybox/winjector/internal/werrors"

// Thread is a thread spawned in the target, entered at a caller-chosen
// address with a caller-chosen single argument.
type Thread struct {
	api     API
	handle  ThreadHandle
	Purpose Purpose
	closed  bool
}

// Spawn creates a thread in the target whose start address is startAddr
// and whose single parameter is arg.
func Spawn(api API, proc ProcessHandle, startAddr, arg Address, purpose Purpose) (*Thread, error) {
	h, err := api.CreateRemoteThread(proc, startAddr, arg)
	if err != nil {
		return nil, werrors.New(werrors.RemoteThreadCreateFailed, "remote.Spawn", err)
	}
	return &Thread{api: api, handle: h, Purpose: purpose}, nil
}

// Wait performs a bounded wait on the thread handle. A timeout is treated
// as cancellation of the remote operation, not an OS error: the caller
// must proceed to cleanup without re-driving the thread.
func (t *Thread) Wait(timeoutMs uint32) error {
	timedOut, err := t.api.WaitForSingleObject(t.handle, timeoutMs)
	if err != nil {
		return werrors.New(werrors.RemoteThreadNonzeroWaitStatus, "remote.Thread.Wait", err)
	}
	if timedOut {
		return werrors.New(werrors.RemoteThreadTimeout, "remote.Thread.Wait", nil)
	}
	return nil
}

// ExitCode returns the thread's exit code. For a LOAD thread this is the
// payload's in-target base truncated to 32 bits on 64-bit Windows —
// callers must not trust it alone and should re-enumerate modules to
// verify. For an UNLOAD thread, nonzero means FreeLibrary succeeded.
func (t *Thread) ExitCode() (uint32, error) {
	code, err := t.api.GetExitCodeThread(t.handle)
	if err != nil {
		return 0, werrors.New(werrors.Unknown, "remote.Thread.ExitCode", err)
	}
	return code, nil
}

// Close closes the thread handle. Idempotent, since cleanup is
// best-effort and may run against partially-acquired state.
func (t *Thread) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.api.CloseThread(t.handle)
}
