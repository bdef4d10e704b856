//go:build windows

// injector implements two CLI shapes: attach-to-running and
// create-suspended-then-inject IAT-hook delivery for a payload DLL.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/nestybox/winjector/internal/bitness"
	"github.com/nestybox/winjector/internal/logio"
	"github.com/nestybox/winjector/internal/remote"
	"github.com/nestybox/winjector/internal/wintarget"
)

const usage = `winjector IAT-hook injector

winjector enumerates a target process (or spawns one suspended),
stages a payload DLL's path in its address space, and drives the OS
loader remotely to map it, hooking an imported routine's IAT slot.
`

var version string // populated by the build

var (
	activeMu  sync.Mutex
	activeSes *session
	activeProf interface{ Stop() }
)

func setActiveSession(s *session) {
	activeMu.Lock()
	activeSes = s
	activeMu.Unlock()
}

func setActiveProfiler(p interface{ Stop() }) {
	activeMu.Lock()
	activeProf = p
	activeMu.Unlock()
}

// exitHandler runs on a caught OS signal: logs it, runs whatever cleanup
// cascade is in flight (cleanup must fire on a caught signal, not just
// the happy path), stops profiling, and exits.
func exitHandler(signalChan chan os.Signal, lw *logio.Writer) {
	s := <-signalChan
	logrus.Warnf("winjector caught signal: %s", s)

	activeMu.Lock()
	sess, prof := activeSes, activeProf
	activeMu.Unlock()

	if sess != nil {
		sess.cleanup(lw)
	}
	if prof != nil {
		prof.Stop()
	}

	lw.Line("exiting on signal %s", s)
	lw.Close()
	os.Exit(1)
}

// runProfiler wires the cpu/mem profiling toggle, useful when an
// operator is tuning the kernel32-poll loop against a slow target.
func runProfiler(ctx *cli.Context) (interface{ Stop() }, error) {
	cpuOn := ctx.GlobalBool("cpu-profiling")
	memOn := ctx.GlobalBool("memory-profiling")
	if cpuOn && memOn {
		return nil, fmt.Errorf("unsupported parameter combination: cpu and memory profiling")
	}
	if cpuOn {
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	}
	if memOn {
		return profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook), nil
	}
	return nil, nil
}

func signalNameFor(pid uint32) string {
	return fmt.Sprintf(`Local\winjector-%d`, pid)
}

func attachAction(ctx *cli.Context, lw *logio.Writer) error {
	if ctx.NArg() != 3 {
		return fmt.Errorf("usage: injector attach <target_process_name> <32bit_payload_path> <64bit_payload_path>")
	}
	targetName := ctx.Args().Get(0)
	path32 := ctx.Args().Get(1)
	path64 := ctx.Args().Get(2)

	pid, err := wintarget.Find(targetName)
	if err != nil {
		return err
	}
	logrus.Infof("found target %q as pid %d", targetName, pid)

	h, err := wintarget.Open(pid)
	if err != nil {
		return err
	}

	sess := &session{proc: h, procOpened: true}
	setActiveSession(sess)
	defer sess.cleanup(lw)

	isWow64, err := bitness.IsWow64(h)
	if err != nil {
		lw.Line("IsWow64Process failed, assuming native bitness: %v", err)
		isWow64 = false
	}
	payloadPath := bitness.Select(isWow64, path32, path64)
	logrus.Infof("target wow64=%v, selected payload %q", isWow64, payloadPath)

	api := remote.NewWindowsAPI()
	proc := remote.ProcessHandle(h)

	cfg := pipelineConfig{
		api:         api,
		proc:        proc,
		payloadPath: payloadPath,
		findKernel:  kernelLocatorAttach(api, proc),
		useSignal:   ctx.GlobalBool("signal-handshake"),
		signalName:  signalNameFor(pid),
	}
	return runPipeline(logrus.StandardLogger(), lw, sess, cfg)
}

func spawnAction(ctx *cli.Context, lw *logio.Writer) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("usage: injector spawn <target_exe_path> <payload_path>")
	}
	exePath := ctx.Args().Get(0)
	payloadPath := ctx.Args().Get(1)

	spawned, err := wintarget.CreateSuspended(exePath)
	if err != nil {
		return err
	}
	logrus.Infof("spawned %q suspended as pid %d", exePath, spawned.Pid)

	sess := &session{
		proc:       spawned.Process,
		procOpened: true,
		suspended:  true,
		mainThread: spawned.MainThread,
	}
	setActiveSession(sess)
	defer sess.cleanup(lw)

	if isWow64, err := bitness.IsWow64(spawned.Process); err != nil {
		lw.Line("IsWow64Process failed: %v", err)
	} else {
		logrus.Infof("spawned target wow64=%v", isWow64)
	}

	api := remote.NewWindowsAPI()
	proc := remote.ProcessHandle(spawned.Process)

	cfg := pipelineConfig{
		api:         api,
		proc:        proc,
		payloadPath: payloadPath,
		findKernel:  kernelLocatorSpawn(api, proc, spawned.MainThread),
		useSignal:   ctx.GlobalBool("signal-handshake"),
		signalName:  signalNameFor(spawned.Pid),
	}
	return runPipeline(logrus.StandardLogger(), lw, sess, cfg)
}

func main() {
	app := cli.NewApp()
	app.Name = "injector"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path or empty string for stderr output (default: \"\")",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "log format; must be json or text",
		},
		cli.BoolFlag{
			Name:  "signal-handshake",
			Usage: "wait for the payload's out-of-band hook-complete acknowledgement",
		},
		cli.BoolFlag{
			Name:   "cpu-profiling",
			Usage:  "enable cpu-profiling data collection",
			Hidden: true,
		},
		cli.BoolFlag{
			Name:   "memory-profiling",
			Usage:  "enable memory-profiling data collection",
			Hidden: true,
		},
	}

	app.Before = func(ctx *cli.Context) error {
		if path := ctx.GlobalString("log"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
			if err != nil {
				return fmt.Errorf("opening log file %v: %v", path, err)
			}
			logrus.SetOutput(f)
		} else {
			logrus.SetOutput(os.Stderr)
		}

		if ctx.GlobalString("log-format") == "json" {
			logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
		} else {
			logrus.SetFormatter(&logrus.TextFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
				FullTimestamp:   true,
			})
		}

		switch ctx.GlobalString("log-level") {
		case "debug":
			logrus.SetLevel(logrus.DebugLevel)
		case "info", "":
			logrus.SetLevel(logrus.InfoLevel)
		case "warning":
			logrus.SetLevel(logrus.WarnLevel)
		case "error":
			logrus.SetLevel(logrus.ErrorLevel)
		case "fatal":
			logrus.SetLevel(logrus.FatalLevel)
		default:
			return fmt.Errorf("log-level option %q not recognized", ctx.GlobalString("log-level"))
		}

		prof, err := runProfiler(ctx)
		if err != nil {
			return err
		}
		setActiveProfiler(prof)

		return nil
	}

	lw := logio.New(afero.NewOsFs(), "injector.log")
	if err := lw.Open(); err != nil {
		logrus.Warnf("failed to open injector.log, continuing without it: %v", err)
	}

	app.Commands = []cli.Command{
		{
			Name:      "attach",
			Usage:     "inject into an already-running process",
			ArgsUsage: "<target_process_name> <32bit_payload_path> <64bit_payload_path>",
			Action: func(ctx *cli.Context) error {
				return attachAction(ctx, lw)
			},
		},
		{
			Name:      "spawn",
			Usage:     "create the target suspended, then inject before it runs",
			ArgsUsage: "<target_exe_path> <payload_path>",
			Action: func(ctx *cli.Context) error {
				return spawnAction(ctx, lw)
			},
		},
	}

	app.Action = func(ctx *cli.Context) error {
		cli.ShowAppHelp(ctx)
		return fmt.Errorf("a subcommand (attach or spawn) is required")
	}

	exitChan := make(chan os.Signal, 1)
	signal.Notify(exitChan, syscall.SIGINT, syscall.SIGTERM)
	go exitHandler(exitChan, lw)

	if err := app.Run(os.Args); err != nil {
		logrus.Error(err)
		lw.Line("exiting with error: %v", err)
		lw.Close()

		activeMu.Lock()
		prof := activeProf
		activeMu.Unlock()
		if prof != nil {
			prof.Stop()
		}
		os.Exit(1)
	}

	logrus.Info("done")
	lw.Line("exiting cleanly")
	lw.Close()

	activeMu.Lock()
	prof := activeProf
	activeMu.Unlock()
	if prof != nil {
		prof.Stop()
	}
}
