package remote

import (
	"bytes"

	"github.com/nestybox/winjector/internal/werrors"
)

// Buffer is a region allocated in the target at Base, of exactly Length
// bytes. The zero value is not usable; construct one with Allocate.
type Buffer struct {
	api     API
	proc    ProcessHandle
	Base    Address
	Length  int
	written []byte
	freed   bool
}

// Allocate reserves+commits a region of exactly length bytes in the
// target, initially read-write. Failure is fatal.
func Allocate(api API, proc ProcessHandle, length int) (*Buffer, error) {
	base, err := api.VirtualAllocEx(proc, uintptr(length))
	if err != nil || base == 0 {
		return nil, werrors.New(werrors.RemoteAllocFailed, "remote.Allocate", err)
	}

	return &Buffer{
		api:    api,
		proc:   proc,
		Base:   base,
		Length: length,
	}, nil
}

// Write copies data into the remote buffer. The number of bytes written
// must equal len(data) exactly; a short write is fatal.
func (b *Buffer) Write(data []byte) error {
	if len(data) != b.Length {
		return werrors.New(werrors.RemoteWriteShort, "remote.Buffer.Write",
			nil)
	}

	n, err := b.api.WriteProcessMemory(b.proc, b.Base, data)
	if err != nil {
		return werrors.New(werrors.RemoteWriteShort, "remote.Buffer.Write", err)
	}
	if n != len(data) {
		return werrors.New(werrors.RemoteWriteShort, "remote.Buffer.Write", nil)
	}

	b.written = append([]byte(nil), data...)
	return nil
}

// Protect downgrades the region's protection to read-only after a
// successful write. Failure here is non-fatal to forward progress but is
// returned so the caller can log it.
func (b *Buffer) Protect(readOnly bool) error {
	if err := b.api.VirtualProtectEx(b.proc, b.Base, uintptr(b.Length), readOnly); err != nil {
		return werrors.New(werrors.RemoteProtectFailed, "remote.Buffer.Protect", err)
	}
	return nil
}

// Verify reads the region back and compares it byte-for-byte against what
// Write last sent. A mismatch is fatal.
func (b *Buffer) Verify() error {
	got, err := b.api.ReadProcessMemory(b.proc, b.Base, b.Length)
	if err != nil {
		return werrors.New(werrors.RemoteReadMismatch, "remote.Buffer.Verify", err)
	}
	if !bytes.Equal(got, b.written) {
		return werrors.New(werrors.RemoteReadMismatch, "remote.Buffer.Verify", nil)
	}
	return nil
}

// Free releases the region with MEM_RELEASE semantics. Idempotent: a
// second call is a no-op, matching the best-effort cleanup cascade the
// caller's resource teardown runs on every exit path.
func (b *Buffer) Free() error {
	if b.freed {
		return nil
	}
	if err := b.api.VirtualFreeEx(b.proc, b.Base); err != nil {
		return werrors.New(werrors.Unknown, "remote.Buffer.Free", err)
	}
	b.freed = true
	return nil
}
