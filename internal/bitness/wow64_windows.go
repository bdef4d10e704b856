//go:build windows

package bitness

import "golang.org/x/sys/windows"

// IsWow64 reports whether the given process handle belongs to a 32-bit
// process running under WoW64 on a 64-bit Windows install.
func IsWow64(proc windows.Handle) (bool, error) {
	var wow64 bool
	if err := windows.IsWow64Process(proc, &wow64); err != nil {
		return false, err
	}
	return wow64, nil
}
