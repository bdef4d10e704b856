//go:build windows

package main

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/nestybox/winjector/internal/bitness"
	"github.com/nestybox/winjector/internal/loader"
	"github.com/nestybox/winjector/internal/logio"
	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/signal"
)

// kernelLocator returns kernel32's module record in the target. Attach
// mode and spawn mode resolve this differently (the target already has
// kernel32 mapped vs. the busy-wait poll needed right after a
// create-suspended spawn), so the pipeline takes it as a parameter
// rather than branching internally.
type kernelLocator func() (*remote.ModuleRecord, error)

// pipelineConfig is everything runPipeline needs beyond the session it
// mutates as resources are acquired.
type pipelineConfig struct {
	api         remote.API
	proc        remote.ProcessHandle
	payloadPath string
	findKernel  kernelLocator
	useSignal   bool
	signalName  string
}

// runPipeline drives the fixed injection ordering end to end: allocate →
// write → downgrade-protection → verify → resolve-routine → spawn-load →
// wait-load → verify-load → (payload work happens, optionally confirmed
// by the signal handshake) → spawn-unload → wait-unload → verify-unload.
// Every resource it acquires is recorded on sess so the caller's deferred
// cleanup releases it regardless of where this function returns.
func runPipeline(log *logrus.Logger, lw *logio.Writer, sess *session, cfg pipelineConfig) error {
	absPath, err := filepath.Abs(cfg.payloadPath)
	if err != nil {
		return err
	}
	absPath = bitness.Normalize(absPath)
	pathBytes := append([]byte(absPath), 0)

	log.Infof("staging payload path %q in target", absPath)
	buf, err := remote.Allocate(cfg.api, cfg.proc, len(pathBytes))
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.buf = buf
	sess.mu.Unlock()

	if err := buf.Write(pathBytes); err != nil {
		return err
	}
	if err := buf.Protect(true); err != nil {
		lw.Line("downgrade protection on remote buffer failed (non-fatal): %v", err)
	}
	if err := buf.Verify(); err != nil {
		return err
	}

	if cfg.useSignal {
		svc := signal.NewService()
		svc.Setup(signal.NewWindowsAPI(), cfg.signalName, cfg.proc)
		if err := svc.Init(); err != nil {
			return err
		}
		sess.mu.Lock()
		sess.sig = svc
		sess.mu.Unlock()
	}

	sr := loader.NewWindowsSelfResolver()
	loadOffset, err := loader.ResolveOffset(sr, "LoadLibraryA")
	if err != nil {
		return err
	}
	freeOffset, err := loader.ResolveOffset(sr, "FreeLibrary")
	if err != nil {
		return err
	}

	log.Info("resolving kernel32 in target")
	kernelMod, err := cfg.findKernel()
	if err != nil {
		return err
	}

	loadAddr := loader.InTargetAddress(kernelMod.Base, loadOffset)
	log.Infof("spawning load thread at in-target LoadLibraryA (%#x)", loadAddr)
	res, err := loader.Load(cfg.api, cfg.proc, loadAddr, buf.Base, filepath.Base(absPath))
	if err != nil {
		return err
	}
	log.Infof("payload %s loaded at %#x", filepath.Base(absPath), res.Payload.Base)

	if cfg.useSignal {
		log.Info("awaiting hook-complete handshake from payload")
		if err := sess.sig.AwaitAck(); err != nil {
			return err
		}
		log.Info("payload acknowledged hook installation")
	}

	freeAddr := loader.InTargetAddress(kernelMod.Base, freeOffset)
	log.Infof("spawning unload thread at in-target FreeLibrary (%#x)", freeAddr)
	if err := loader.Unload(cfg.api, cfg.proc, freeAddr, res.Payload); err != nil {
		return err
	}
	log.Info("payload unloaded and verified absent")

	return nil
}

// kernelLocatorAttach resolves kernel32 directly: in attach mode the
// target is already a running process, so kernel32 is mapped.
func kernelLocatorAttach(api remote.API, proc remote.ProcessHandle) kernelLocator {
	return func() (*remote.ModuleRecord, error) {
		return remote.FindModule(api, proc, "kernel32.dll")
	}
}

// kernelLocatorSpawn polls for kernel32 via the resume/sleep/suspend
// cycle, for the create-suspended mode where the loader may not have
// mapped it yet.
func kernelLocatorSpawn(api remote.API, proc remote.ProcessHandle, mainThread windows.Handle) kernelLocator {
	return func() (*remote.ModuleRecord, error) {
		return loader.PollKernel32InTarget(api, proc, remote.ThreadHandle(mainThread))
	}
}
