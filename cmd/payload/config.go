//go:build windows

package main

// Compile-time target configuration. Override at link time with
//
//	go build -buildmode=c-shared -ldflags "-X main.targetModule=... -X main.targetFunction=..."
//
// to produce a payload DLL aimed at a different import without touching
// source, done the same way cmd/injector's version string is baked in.
var (
	targetModule   = "msvcrt.dll"
	targetFunction = "fwrite"

	// signalMappingName, when non-empty, names the injector's handshake
	// mapping this payload should acknowledge once the hook is
	// installed. Baked into a given payload build the same way; empty
	// means the handshake is not in use.
	signalMappingName = ""
)
