// Package trampoline implements the swap-and-return contract: given an
// IAT slot address and a replacement function pointer, swap the slot's
// contents under a temporary read-write protection window and hand back
// the previous value. The swap is a read followed by a separate write,
// not a single atomic exchange. Afterwards the page is set read-only,
// whatever its protection was before. No calling-convention trampoline
// stub is synthesized — code-caving/trampoline synthesis is out of
// scope; callers bring an already-valid function pointer.
package trampoline

import "github.com/nestybox/winjector/internal/werrors"

// Memory is the payload-local capability this package needs: protect a
// page read-write, read/write a pointer-sized slot, and set the page
// read-only again. It is the in-process analogue of internal/remote's API —
// same shape, different address space.
type Memory interface {
	Protect(addr uintptr, readOnly bool) error
	ReadPointer(addr uintptr) uintptr
	WritePointer(addr uintptr, value uintptr) error
}

// Install swaps the pointer-sized value at slotAddr with replacement,
// returning the value it held before the swap so a caller can restore it
// later. The old value is read and the new one written in two separate
// steps; a concurrent writer to the same slot is not excluded.
func Install(mem Memory, slotAddr uintptr, replacement uintptr) (previous uintptr, err error) {
	if err := mem.Protect(slotAddr, false); err != nil {
		return 0, werrors.New(werrors.RemoteProtectFailed, "trampoline.Install.unprotect", err)
	}

	previous = mem.ReadPointer(slotAddr)
	if err := mem.WritePointer(slotAddr, replacement); err != nil {
		// best-effort: set the page read-only again before surfacing
		// the write failure, since leaving the IAT page writable is a
		// worse outcome than a slightly noisier error path.
		_ = mem.Protect(slotAddr, true)
		return 0, werrors.New(werrors.RemoteWriteShort, "trampoline.Install.write", err)
	}

	if err := mem.Protect(slotAddr, true); err != nil {
		return previous, werrors.New(werrors.RemoteProtectFailed, "trampoline.Install.reprotect", err)
	}
	return previous, nil
}

// Restore writes original back into slotAddr, reversing Install.
func Restore(mem Memory, slotAddr uintptr, original uintptr) error {
	if err := mem.Protect(slotAddr, false); err != nil {
		return werrors.New(werrors.RemoteProtectFailed, "trampoline.Restore.unprotect", err)
	}
	if err := mem.WritePointer(slotAddr, original); err != nil {
		return werrors.New(werrors.RemoteWriteShort, "trampoline.Restore.write", err)
	}
	if err := mem.Protect(slotAddr, true); err != nil {
		return werrors.New(werrors.RemoteProtectFailed, "trampoline.Restore.reprotect", err)
	}
	return nil
}
