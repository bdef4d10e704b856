// Package werrors implements the error taxonomy used throughout the
// injector and payload: a small set of distinguishable kinds, each
// optionally wrapping the OS last-error that produced it.
package werrors

import "fmt"

// Kind identifies one of the fatal or advisory conditions a fallible step
// in the injector/payload pipeline can end in. Kinds are compared by
// value, never by string, so callers can branch on them with this
// package's Is.
type Kind int

const (
	Unknown Kind = iota
	ProcessNotFound
	HandleOpenDenied
	RemoteAllocFailed
	RemoteWriteShort
	RemoteReadMismatch
	RemoteProtectFailed
	ModuleNotFoundInTarget
	RoutineNotExported
	RemoteThreadCreateFailed
	RemoteThreadTimeout
	RemoteThreadNonzeroWaitStatus
	UnloadVerificationFailed
	PEParseError
	ModuleNameDecodeError
	FunctionNameDecodeError
	ImportModuleNotFound
	ImportFunctionNotFound
	HandshakeTimeout
)

var kindNames = map[Kind]string{
	Unknown:                       "unknown-os-error",
	ProcessNotFound:               "process-not-found",
	HandleOpenDenied:              "handle-open-denied",
	RemoteAllocFailed:             "remote-alloc-failed",
	RemoteWriteShort:              "remote-write-short",
	RemoteReadMismatch:            "remote-read-mismatch",
	RemoteProtectFailed:           "remote-protect-failed",
	ModuleNotFoundInTarget:        "module-not-found-in-target",
	RoutineNotExported:            "routine-not-exported",
	RemoteThreadCreateFailed:      "remote-thread-create-failed",
	RemoteThreadTimeout:           "remote-thread-timeout",
	RemoteThreadNonzeroWaitStatus: "remote-thread-nonzero-wait-status",
	UnloadVerificationFailed:      "unload-verification-failed",
	PEParseError:                  "pe-parse-error",
	ModuleNameDecodeError:         "module-name-decode-error",
	FunctionNameDecodeError:       "function-name-decode-error",
	ImportModuleNotFound:          "import-module-not-found",
	ImportFunctionNotFound:        "import-function-not-found",
	HandshakeTimeout:              "handshake-timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown-os-error"
}

// Error is a tagged error: a Kind plus the OS or decoding error it wraps,
// if any. A failed module lookup is reported by its own Kind,
// ModuleNotFoundInTarget, so it is never confused with a genuine Windows
// last-error code.
type Error struct {
	Kind Kind
	Op   string // the step that failed, e.g. "remote.Buffer.Write"
	Err  error  // wrapped OS/decoding error, may be nil
}

// NotFoundSentinel is the numeric code associated with
// ModuleNotFoundInTarget. Nothing in this module sets or compares it;
// the condition is reported and detected through the Kind.
const NotFoundSentinel = 404

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	we, ok := err.(*Error)
	if !ok {
		return false
	}
	return we.Kind == kind
}
