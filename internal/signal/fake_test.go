package signal

import "github.com/nestybox/winjector/internal/remote"

type fakeAPI struct {
	nextMapping MappingHandle
	nextView    ViewAddr
	nextEvent   EventHandle

	createMappingErr error
	mapViewErr       error
	createEventErr   error
	duplicateErr     error
	writeErr         error

	written map[ViewAddr]EventHandle

	waitSequence []bool // per-call timedOut values; last value repeats
	waitErr      error
	waitCalls    int

	closedMappings []MappingHandle
	closedEvents   []EventHandle
	unmappedViews  []ViewAddr

	openMappingErr error
	readHandleErr  error
	setEventErr    error
	setEventCalls  []EventHandle
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextMapping: 1,
		nextView:    0x10000,
		nextEvent:   100,
		written:     make(map[ViewAddr]EventHandle),
	}
}

func (f *fakeAPI) CreateNamedMapping(name string, size uintptr) (MappingHandle, error) {
	if f.createMappingErr != nil {
		return 0, f.createMappingErr
	}
	return f.nextMapping, nil
}

func (f *fakeAPI) MapView(m MappingHandle, size uintptr) (ViewAddr, error) {
	if f.mapViewErr != nil {
		return 0, f.mapViewErr
	}
	return f.nextView, nil
}

func (f *fakeAPI) UnmapView(v ViewAddr) error {
	f.unmappedViews = append(f.unmappedViews, v)
	return nil
}

func (f *fakeAPI) CloseMapping(m MappingHandle) error {
	f.closedMappings = append(f.closedMappings, m)
	return nil
}

func (f *fakeAPI) CreateManualResetEvent() (EventHandle, error) {
	if f.createEventErr != nil {
		return 0, f.createEventErr
	}
	return f.nextEvent, nil
}

func (f *fakeAPI) DuplicateEventToProcess(e EventHandle, target remote.ProcessHandle) (EventHandle, error) {
	if f.duplicateErr != nil {
		return 0, f.duplicateErr
	}
	return f.nextEvent + 1, nil
}

func (f *fakeAPI) CloseEvent(e EventHandle) error {
	f.closedEvents = append(f.closedEvents, e)
	return nil
}

func (f *fakeAPI) WriteHandleValue(v ViewAddr, h EventHandle) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[v] = h
	return nil
}

func (f *fakeAPI) WaitEvent(e EventHandle, timeoutMs uint32) (bool, error) {
	if f.waitErr != nil {
		return false, f.waitErr
	}
	idx := f.waitCalls
	f.waitCalls++
	if idx >= len(f.waitSequence) {
		if len(f.waitSequence) == 0 {
			return false, nil
		}
		return f.waitSequence[len(f.waitSequence)-1], nil
	}
	return f.waitSequence[idx], nil
}

func (f *fakeAPI) OpenNamedMapping(name string, size uintptr) (MappingHandle, error) {
	if f.openMappingErr != nil {
		return 0, f.openMappingErr
	}
	return f.nextMapping, nil
}

func (f *fakeAPI) ReadHandleValue(v ViewAddr) (EventHandle, error) {
	if f.readHandleErr != nil {
		return 0, f.readHandleErr
	}
	return f.written[v], nil
}

func (f *fakeAPI) SetEvent(e EventHandle) error {
	if f.setEventErr != nil {
		return f.setEventErr
	}
	f.setEventCalls = append(f.setEventCalls, e)
	return nil
}

var _ API = (*fakeAPI)(nil)
