package peimage

// Memory reads bytes from an address. In production this is the
// payload's own mapped image — in-process pointers, not foreign-address-
// space pointer arithmetic; tests substitute a byte-slice-backed fake so
// the import-table walk is exercised without a live PE image.
type Memory interface {
	Read(addr uintptr, n int) []byte
}
