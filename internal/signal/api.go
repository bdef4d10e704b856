// Package signal implements an optional hook-acknowledgement handshake:
// a named file-mapping carrying a duplicated manual-reset Event handle,
// used by the payload to acknowledge hooking is complete. Service-shape,
// it is a Setup(deps) call followed by an Init() that does the OS work,
// with the same "small capability interface + fake for tests" split as
// internal/remote.
package signal

import "github.com/nestybox/winjector/internal/remote"

// MappingHandle is an opaque handle to a named file-mapping object.
type MappingHandle uintptr

// ViewAddr is an opaque address of a mapped view in the injector's own
// address space.
type ViewAddr uintptr

// EventHandle is an opaque handle to a manual-reset Event, either owned
// by the injector or duplicated into the target.
type EventHandle uintptr

// API is the small set of OS operations the handshake needs. A real
// implementation backs it with CreateFileMapping/MapViewOfFile/
// CreateEvent/DuplicateHandle (api_windows.go); tests substitute a fake.
type API interface {
	CreateNamedMapping(name string, size uintptr) (MappingHandle, error)
	MapView(m MappingHandle, size uintptr) (ViewAddr, error)
	UnmapView(v ViewAddr) error
	CloseMapping(m MappingHandle) error

	CreateManualResetEvent() (EventHandle, error)
	DuplicateEventToProcess(e EventHandle, target remote.ProcessHandle) (EventHandle, error)
	CloseEvent(e EventHandle) error

	// WriteHandleValue publishes h's numeric value into the mapped view
	// so the payload, which opens the same named mapping in the target,
	// can read the handle that is valid in its own process (the
	// duplicated one, not the injector's original).
	WriteHandleValue(v ViewAddr, h EventHandle) error

	// WaitEvent waits up to timeoutMs for e to signal.
	WaitEvent(e EventHandle, timeoutMs uint32) (timedOut bool, err error)

	// OpenNamedMapping opens a mapping the injector already created by
	// name. This is the payload side of the handshake: it runs inside the
	// target, so the handle DuplicateEventToProcess produced is already
	// valid in its own process, not a duplicate-of-a-duplicate.
	OpenNamedMapping(name string, size uintptr) (MappingHandle, error)

	// ReadHandleValue reads back the event handle WriteHandleValue
	// published into the view.
	ReadHandleValue(v ViewAddr) (EventHandle, error)

	// SetEvent signals e, acknowledging that hook installation finished.
	SetEvent(e EventHandle) error
}
