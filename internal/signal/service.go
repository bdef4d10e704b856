package signal

import (
	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/werrors"
)

// AckRetries and AckWaitMs are the handshake's timeout policy: 5 retries
// at 1000ms each.
const (
	AckRetries = 5
	AckWaitMs  = 1000
)

const handleValueSize = 8 // one handle value

// Service is the injector-side half of the handshake: it creates the
// named mapping and event, hands the event's duplicate to the target via
// the mapping, then waits for the payload to set it.
type Service struct {
	api     API
	name    string
	target  remote.ProcessHandle
	mapping MappingHandle
	view    ViewAddr
	event   EventHandle
	dup     EventHandle
	closed  bool
}

// NewService constructs an unconfigured Service; call Setup before Init.
func NewService() *Service {
	return &Service{}
}

// Setup wires the Service's dependencies. Kept separate from Init so
// construction and OS-resource acquisition stay separate.
func (s *Service) Setup(api API, name string, target remote.ProcessHandle) {
	s.api = api
	s.name = name
	s.target = target
}

// Init creates the named mapping and the manual-reset event, duplicates
// the event into the target process, and publishes the duplicate's value
// into the mapped view for the payload to read.
func (s *Service) Init() error {
	mapping, err := s.api.CreateNamedMapping(s.name, handleValueSize)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Init.CreateNamedMapping", err)
	}
	s.mapping = mapping

	view, err := s.api.MapView(mapping, handleValueSize)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Init.MapView", err)
	}
	s.view = view

	event, err := s.api.CreateManualResetEvent()
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Init.CreateManualResetEvent", err)
	}
	s.event = event

	dup, err := s.api.DuplicateEventToProcess(event, s.target)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Init.DuplicateEventToProcess", err)
	}
	s.dup = dup

	if err := s.api.WriteHandleValue(view, dup); err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Init.WriteHandleValue", err)
	}
	return nil
}

// AwaitAck blocks until the payload signals completion or the handshake
// times out after AckRetries waits of AckWaitMs each.
func (s *Service) AwaitAck() error {
	for i := 0; i < AckRetries; i++ {
		timedOut, err := s.api.WaitEvent(s.event, AckWaitMs)
		if err != nil {
			return werrors.New(werrors.HandshakeTimeout, "signal.AwaitAck", err)
		}
		if !timedOut {
			return nil
		}
	}
	return werrors.New(werrors.HandshakeTimeout, "signal.AwaitAck", nil)
}

// Close releases the mapping/view/event resources. Idempotent, since
// every step of the cleanup cascade must be safe to call more than once.
func (s *Service) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.view != 0 {
		record(s.api.UnmapView(s.view))
	}
	if s.mapping != 0 {
		record(s.api.CloseMapping(s.mapping))
	}
	if s.event != 0 {
		record(s.api.CloseEvent(s.event))
	}
	return firstErr
}
