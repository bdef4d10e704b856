package signal

import "github.com/nestybox/winjector/internal/werrors"

const ackMappingSize = handleValueSize

// Ack is the payload-side half of the handshake: it opens the
// named mapping the injector already created, reads the duplicated event
// handle out of the view, and sets it — acknowledging that hook
// installation finished. Unlike Service, there is nothing to keep open
// afterward: the payload's reference to the mapping/event is released as
// soon as the signal is sent.
func Ack(api API, name string) error {
	mapping, err := api.OpenNamedMapping(name, ackMappingSize)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Ack.OpenNamedMapping", err)
	}
	defer api.CloseMapping(mapping)

	view, err := api.MapView(mapping, ackMappingSize)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Ack.MapView", err)
	}
	defer api.UnmapView(view)

	event, err := api.ReadHandleValue(view)
	if err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Ack.ReadHandleValue", err)
	}

	if err := api.SetEvent(event); err != nil {
		return werrors.New(werrors.HandshakeTimeout, "signal.Ack.SetEvent", err)
	}
	return nil
}
