//go:build windows

package main

import (
	"sync"

	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/logio"
	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/signal"
)

// session tracks every resource the injector has acquired so far, so
// cleanup can release exactly what is present, best-effort, in a fixed
// order — whether injection finished normally or was cut short by a
// fatal error or a caught signal.
type session struct {
	mu sync.Mutex

	buf *remote.Buffer
	sig *signal.Service

	proc       windows.Handle
	procOpened bool

	suspended  bool
	mainThread windows.Handle
}

// cleanup runs the release cascade: free the remote buffer, close
// the signalling handshake's handles, resume a suspended main thread (so
// the target is never left frozen), then close the main-thread and
// process handles. Every step is idempotent and best-effort; failures are
// logged, never returned, since cleanup runs on both the happy path and
// every error path.
func (s *session) cleanup(lw *logio.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf != nil {
		if err := s.buf.Free(); err != nil {
			lw.Line("cleanup: free remote buffer: %v", err)
		}
	}

	if s.sig != nil {
		if err := s.sig.Close(); err != nil {
			lw.Line("cleanup: close signal handshake: %v", err)
		}
	}

	if s.suspended && s.mainThread != 0 {
		if _, err := windows.ResumeThread(s.mainThread); err != nil {
			lw.Line("cleanup: resume suspended main thread: %v", err)
		}
		windows.CloseHandle(s.mainThread)
		s.mainThread = 0
	}

	if s.procOpened {
		windows.CloseHandle(s.proc)
		s.procOpened = false
	}
}
