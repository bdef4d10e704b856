//go:build windows

package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/afero"
	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/logio"
	"github.com/nestybox/winjector/internal/peimage"
	"github.com/nestybox/winjector/internal/signal"
	"github.com/nestybox/winjector/internal/trampoline"
)

// log is the payload-local, best-effort log file this payload writes to
// in place of any UI — crashing the host process is forbidden. It
// reuses internal/logio's single-writer Writer, the same one cmd/injector
// writes injector.log with, since the payload, like
// the injector, never wants a logging failure to become a second reason
// for the hook to fail.
var log = logio.New(afero.NewOsFs(), "winjector-payload.log")

// originalTarget holds the value FindIATSlot's slot contained before
// Install overwrote it, so hookTrampoline can still call through to the
// real function after logging the call.
var originalTarget uintptr

// attach runs the hook pipeline end to end: PE self-walk, IAT slot
// resolution, trampoline install, and — if a handshake mapping is
// configured — its acknowledgement. Every failure is logged and
// swallowed; nothing here may propagate into the host as a panic.
func attach() {
	if err := log.Open(); err != nil {
		return
	}
	defer log.Close()

	if err := run(); err != nil {
		log.Line("attach failed: %v", err)
		return
	}
	log.Line("hook installed: %s!%s", targetModule, targetFunction)
}

func run() error {
	exeBase, err := windows.GetModuleHandle("")
	if err != nil {
		return fmt.Errorf("resolving exe base: %w", err)
	}

	img, err := peimage.NewImage(peimage.ProcessMemory{}, uintptr(exeBase))
	if err != nil {
		return fmt.Errorf("parsing host PE image: %w", err)
	}

	slotAddr, err := img.FindIATSlot(targetModule, targetFunction)
	if err != nil {
		return fmt.Errorf("locating IAT slot for %s!%s: %w", targetModule, targetFunction, err)
	}

	replacement := syscall.NewCallback(hookTrampoline)
	previous, err := trampoline.Install(trampoline.ProcessLocalMemory{}, slotAddr, replacement)
	if err != nil {
		return fmt.Errorf("installing trampoline: %w", err)
	}
	originalTarget = previous

	if signalMappingName != "" {
		if err := signal.Ack(signal.NewWindowsAPI(), signalMappingName); err != nil {
			// Non-fatal: the hook is live even if the injector's handshake
			// window already lapsed.
			log.Line("signal handshake ack failed: %v", err)
		}
	}
	return nil
}

// hookTrampoline stands in for the configured target function: it logs
// the call, forwards to the saved original, and returns its result. The
// default target, msvcrt.dll!fwrite, takes four pointer-sized cdecl
// arguments (ptr, size, count, stream) and returns size_t; a different
// target needs a hook matching its own argument count. On 64-bit Windows
// the cdecl and stdcall argument-passing conventions coincide, so
// syscall.NewCallback's stdcall trampoline calls through cleanly; a
// 32-bit cdecl target would need the caller, not the callee, to clean
// the stack, which this shortcut does not do — a known limitation of
// using syscall.NewCallback as a generic trampoline, called out here
// rather than guessed around.
func hookTrampoline(a0, a1, a2, a3 uintptr) uintptr {
	log.Line("call: %s!%s(%#x, %#x, %#x, %#x)", targetModule, targetFunction, a0, a1, a2, a3)
	r, _, _ := syscall.SyscallN(originalTarget, a0, a1, a2, a3)
	return r
}
