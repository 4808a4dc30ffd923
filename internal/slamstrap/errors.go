package slamstrap

import (
	"errors"
	"fmt"
	"os/exec"
)

// Error taxonomy for the pipeline. The kind decides the process exit code:
// usage and configuration problems exit 2, expected-but-absent conditions
// (wrong distro family, unresolvable header) exit 1, and failures of
// external commands propagate the child's own exit code.
type errKind int

const (
	errUsage errKind = iota
	errConfig
	errMissing
	errTransient
	errFatal
)

type pipelineError struct {
	kind errKind
	msg  string
	err  error
}

func (e *pipelineError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *pipelineError) Unwrap() error { return e.err }

func usageErrorf(format string, a ...any) error {
	return &pipelineError{kind: errUsage, msg: fmt.Sprintf(format, a...)}
}

func configErrorf(format string, a ...any) error {
	return &pipelineError{kind: errConfig, msg: fmt.Sprintf(format, a...)}
}

func missingErrorf(format string, a ...any) error {
	return &pipelineError{kind: errMissing, msg: fmt.Sprintf(format, a...)}
}

// transientError wraps a command failure that survived the retry loop.
func transientError(cmd Command, err error) error {
	return &pipelineError{kind: errTransient, msg: fmt.Sprintf("command failed after retries: %s", cmd), err: err}
}

// fatalError wraps a non-retryable command failure with its full command text.
func fatalError(cmd Command, err error) error {
	return &pipelineError{kind: errFatal, msg: fmt.Sprintf("command failed: %s", cmd), err: err}
}

// exitCodeFor maps an error to the process exit code. External command
// failures keep the exact exit code of whichever command failed.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var pe *pipelineError
	if errors.As(err, &pe) {
		switch pe.kind {
		case errUsage, errConfig:
			return 2
		case errMissing:
			return 1
		}
	}
	var xe *exec.ExitError
	if errors.As(err, &xe) && xe.ExitCode() > 0 {
		return xe.ExitCode()
	}
	return 1
}
