// SPDX-License-Identifier: MPL-2.0

package cmdrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultEscalateCommand is prepended to elevated commands unless configured otherwise.
const DefaultEscalateCommand = "sudo"

var (
	// ErrCommandFailed is the sentinel error wrapped by CommandFailedError.
	ErrCommandFailed = errors.New("command failed")

	// ErrEmptyCommand is returned when Run is called with an empty argv.
	ErrEmptyCommand = errors.New("empty command")
)

type (
	// Runner executes one external command and reports its exit status.
	// err is non-nil only when the command could not be started or waited on;
	// a non-zero exit is reported through exitCode.
	Runner interface {
		Run(ctx context.Context, argv []string, elevated bool) (exitCode int, err error)
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Option configures an Executor.
	Option func(*Executor)

	// Executor is the Runner backed by real child processes.
	Executor struct {
		escalate    []string
		execCommand ExecCommandFunc
		geteuid     func() int
		stdout      io.Writer
		stderr      io.Writer
		logger      *slog.Logger
	}

	// CommandFailedError is returned by Check when a command exits non-zero.
	CommandFailedError struct {
		Argv     []string
		ExitCode int
	}
)

// NewExecutor creates an Executor that escalates with sudo and streams child
// output to the process's stdout/stderr.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		escalate:    []string{DefaultEscalateCommand},
		execCommand: exec.CommandContext,
		geteuid:     unix.Geteuid,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithEscalation sets the command prepended to elevated argv, e.g. "sudo" or
// "doas". The value is split on whitespace so "sudo -E" works.
func WithEscalation(command string) Option {
	return func(e *Executor) {
		if fields := strings.Fields(command); len(fields) > 0 {
			e.escalate = fields
		}
	}
}

// WithExecCommand replaces exec.CommandContext.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(e *Executor) {
		e.execCommand = fn
	}
}

// WithEUID replaces the effective-uid lookup used to skip escalation for root.
func WithEUID(fn func() int) Option {
	return func(e *Executor) {
		e.geteuid = fn
	}
}

// WithOutput sets where child stdout and stderr are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Argv returns the command line that Run would execute, including the
// escalation prefix when elevated is set and the caller is not already root.
func (e *Executor) Argv(argv []string, elevated bool) []string {
	if !elevated || e.geteuid() == 0 {
		return argv
	}
	full := make([]string, 0, len(e.escalate)+len(argv))
	full = append(full, e.escalate...)
	return append(full, argv...)
}

// Run implements Runner.
func (e *Executor) Run(ctx context.Context, argv []string, elevated bool) (int, error) {
	if len(argv) == 0 {
		return -1, ErrEmptyCommand
	}

	full := e.Argv(argv, elevated)
	e.logger.Debug("exec", "cmd", Quote(full), "elevated", elevated)

	cmd := e.execCommand(ctx, full[0], full[1:]...)
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, fmt.Errorf("%s: %w", full[0], ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to run %s: %w", full[0], err)
}

// Check runs argv and converts a non-zero exit into a *CommandFailedError.
func Check(ctx context.Context, r Runner, argv []string, elevated bool) error {
	code, err := r.Run(ctx, argv, elevated)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandFailedError{Argv: argv, ExitCode: code}
	}
	return nil
}

// Error implements the error interface.
func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %s exited with status %d", Quote(e.Argv), e.ExitCode)
}

// Unwrap returns ErrCommandFailed for errors.Is() compatibility.
func (e *CommandFailedError) Unwrap() error {
	return ErrCommandFailed
}
