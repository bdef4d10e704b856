package peimage

import "unsafe"

// ProcessMemory is the real Memory: it dereferences addresses directly,
// because the payload runs inside the host process and its own image is
// simply mapped into its address space. Raw pointer arithmetic, no
// syscalls, the same way an in-memory module loader walks its own image.
type ProcessMemory struct{}

func (ProcessMemory) Read(addr uintptr, n int) []byte {
	out := make([]byte, n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
	copy(out, src)
	return out
}
