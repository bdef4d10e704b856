// Package bitness implements a pair of small, deliberately thin
// collaborators: choosing the 32-bit or 64-bit payload path by the
// target's WoW64 state, and normalizing a payload path before it is
// written into the target.
package bitness

import "strings"

const longPathPrefix = `\\?\`

// Select returns the 32-bit payload path if the target is running under
// WoW64 (32-bit code on a 64-bit OS), otherwise the 64-bit path.
func Select(isWow64 bool, path32, path64 string) string {
	if isWow64 {
		return path32
	}
	return path64
}

// Normalize strips a long-path `\\?\` prefix and returns the remainder.
// Canonicalization to an absolute path is the caller's responsibility;
// this only undoes the one prefix that must not reach the target, since
// the payload itself never needs long-path semantics.
func Normalize(path string) string {
	return strings.TrimPrefix(path, longPathPrefix)
}
