package wintarget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		target, process string
		want            bool
	}{
		{"notepad.exe", "notepad.exe", true},
		{"notepad", "notepad.exe", true},
		{"NOTEPAD.EXE", "notepad.exe", true},
		{"notepad.exe", "notepad", true}, // symmetric
		{"calc.exe", "notepad.exe", false},
		{"", "notepad.exe", true}, // empty target is a substring of everything
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Match(c.target, c.process), "Match(%q, %q)", c.target, c.process)
	}
}

func TestFindFirstReturnsEnumerationOrderWinner(t *testing.T) {
	procs := []Descriptor{
		{Pid: 10, Name: "foo.exe"},
		{Pid: 20, Name: "notepad.exe"},
		{Pid: 30, Name: "notepad2.exe"},
	}

	pid, ok := FindFirst(procs, "notepad")
	require.True(t, ok, "expected a match")
	assert.Equal(t, uint32(20), pid, "first enumeration match wins")
}

func TestFindFirstNoMatch(t *testing.T) {
	procs := []Descriptor{{Pid: 1, Name: "explorer.exe"}}
	_, ok := FindFirst(procs, "doesnotexistxyz.exe")
	assert.False(t, ok)
}
