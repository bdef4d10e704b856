//go:build windows

// Command payload is built with `go build -buildmode=c-shared` into a
// shared library. It exposes no function beyond its load-time entry
// point: the OS loader runs this package's init() when LoadLibraryA
// maps it into the host, which is this system's equivalent of
// DLL_PROCESS_ATTACH. There is no thread-attach, thread-detach, or
// process-detach work to do; those reasons all become no-ops.
package main

func main() {}

func init() {
	attach()
}
