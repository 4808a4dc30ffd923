package slamstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Command is a typed descriptor for one external invocation. Keeping the
// program, arguments and elevation requirement as data lets the retry loop
// and the fatal-error path run against a fake Runner in tests.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string // appended to the inherited environment
	AsRoot bool
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// Runner executes command descriptors. LookPath is part of the interface so
// tool detection (sudo, ninja) is fakeable too.
type Runner interface {
	Run(ctx context.Context, c Command) error
	LookPath(name string) (string, error)
}

// execRunner is the production Runner. It wires up stdio, elevates via
// `sudo -E` when the descriptor demands root and the process is not already
// root, and isolates the child in its own process group so a cancelled
// context kills the whole build tool tree, not just its top process.
type execRunner struct {
	sudo string // path to sudo; empty when running as root
	euid int
}

func newExecRunner(cfg *Config, euid int) *execRunner {
	return &execRunner{sudo: cfg.Sudo, euid: euid}
}

func (r *execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *execRunner) Run(ctx context.Context, c Command) error {
	name := c.Name
	args := c.Args
	if c.AsRoot && r.euid != 0 {
		if r.sudo == "" {
			return configErrorf("command needs root but no privilege helper is available: %s", c)
		}
		args = append([]string{"-E", name}, args...)
		name = r.sudo
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)

	cmd.Stdin = os.Stdin
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Name, err)
	}

	pgid := cmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			// Give the process group a moment to die and flush buffers.
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", ctx.Err())
		}
		return err
	}
	return nil
}
