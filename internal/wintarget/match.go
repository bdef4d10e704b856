// Package wintarget implements process discovery and selection:
// enumerating running processes, matching a user-supplied target name
// against them, and opening a handle with the rights the rest of the
// injector needs.
package wintarget

import "strings"

// Descriptor is a (pid, name) pair produced by enumeration. Name is the
// module base name of the main image, compared case-insensitively.
type Descriptor struct {
	Pid  uint32
	Name string
}

// Match reports whether the user-supplied target name and a process'
// reported name refer to the same process: a case-insensitive substring
// match that is symmetric — the target is considered running if either
// name is a substring of the other.
func Match(target, processName string) bool {
	t := strings.ToLower(target)
	p := strings.ToLower(processName)
	return strings.Contains(p, t) || strings.Contains(t, p)
}

// FindFirst returns the PID of the first descriptor in procs whose name
// matches target, in enumeration order — first match wins. The second
// return value is false if nothing matched.
func FindFirst(procs []Descriptor, target string) (uint32, bool) {
	for _, d := range procs {
		if Match(target, d.Name) {
			return d.Pid, true
		}
	}
	return 0, false
}
