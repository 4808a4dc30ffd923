package slamstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

var (
	version   = "dev" // overridden at build time
	buildDate = "unknown"
	arch      = runtime.GOARCH
)

// Main is the CLI entrypoint for the slamstrap binary.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			fmt.Fprintf(os.Stderr, "\nreceived %v, cancelling\n", sig)
			cancel()
			// A second signal forces an immediate exit.
			select {
			case <-sigs:
				os.Exit(130)
			case <-time.After(2 * time.Second):
				os.Exit(130)
			}
		case <-ctx.Done():
		}
	}()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	cfg := defaultConfig()

	configPath := defaultConfigFile
	if root := os.Getenv("SLAMSTRAP_ROOT"); root != "" {
		configPath = filepath.Join(root, "etc", "slamstrap.conf")
	}
	if err := loadConfigFile(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not read %s: %v\n", configPath, err)
	}
	mergeEnvOverrides(cfg)

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return runSubcommand(ctx, cfg, args[0], args[1:])
	}

	help, err := parseArgs(cfg, args)
	if help {
		printUsage(os.Stdout)
		return 0
	}
	d := NewDiag(os.Stderr, cfg.Quiet, !cfg.NoColor && stderrColorDefault(), cfg.Debug)
	if err != nil {
		d.Failf("%v", err)
		return exitCodeFor(err)
	}

	euid := os.Geteuid()
	cfg.Finalize(&execRunner{euid: euid}, euid)

	p := &Pipeline{
		Cfg:    cfg,
		Diag:   d,
		Runner: newExecRunner(cfg, euid),
		Apt:    defaultAptRetrier(),
		Euid:   euid,
	}
	if err := p.Run(ctx); err != nil {
		d.Failf("%v", err)
		return exitCodeFor(err)
	}
	return 0
}

// snapshotNames picks the checkouts a snapshot/mirror subcommand operates
// on: explicit arguments, or both libraries when none are given.
func snapshotNames(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{"g2o", "openvslam"}
}

func runSubcommand(ctx context.Context, cfg *Config, cmd string, args []string) int {
	d := NewDiag(os.Stderr, cfg.Quiet, stderrColorDefault(), cfg.Debug)

	switch cmd {
	case "help":
		printUsage(os.Stdout)
		return 0

	case "version":
		fmt.Printf("slamstrap %s (%s, built %s)\n", version, arch, buildDate)
		return 0

	case "log":
		if err := runLogViewer(cfg); err != nil {
			d.Failf("log viewer: %v", err)
			return 1
		}
		return 0

	case "snapshot":
		if len(args) < 1 {
			d.Failf("usage: slamstrap snapshot save|restore|list [name...]")
			return 2
		}
		op, rest := args[0], args[1:]
		var err error
		switch op {
		case "save":
			for _, name := range snapshotNames(rest) {
				if err = saveSnapshot(cfg, d, name); err != nil {
					break
				}
			}
		case "restore":
			for _, name := range snapshotNames(rest) {
				if err = restoreSnapshot(cfg, d, name); err != nil {
					break
				}
			}
		case "list":
			err = listSnapshots(cfg, d)
		default:
			d.Failf("unknown snapshot operation %q", op)
			return 2
		}
		if err != nil {
			d.Failf("snapshot %s: %v", op, err)
			return 1
		}
		return 0

	case "mirror":
		if len(args) < 1 {
			d.Failf("usage: slamstrap mirror push|pull|list [name...]")
			return 2
		}
		client, err := NewMirrorClient(ctx, cfg)
		if err != nil {
			d.Failf("%v", err)
			return exitCodeFor(err)
		}
		op, rest := args[0], args[1:]
		switch op {
		case "push":
			for _, name := range snapshotNames(rest) {
				if err = client.Push(ctx, cfg, d, name); err != nil {
					break
				}
			}
		case "pull":
			for _, name := range snapshotNames(rest) {
				if err = client.Pull(ctx, cfg, d, name); err != nil {
					break
				}
			}
		case "list":
			err = client.List(ctx, d)
		default:
			d.Failf("unknown mirror operation %q", op)
			return 2
		}
		if err != nil {
			d.Failf("mirror %s: %v", op, err)
			return 1
		}
		return 0
	}

	d.Failf("unrecognized command %q (run 'slamstrap --help')", cmd)
	return 2
}
