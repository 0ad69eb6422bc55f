// Package executor runs external commands with output capture, timeouts,
// and a global cap on concurrently running processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrorKind classifies process execution failures.
type ErrorKind string

const (
	// KindTimedOut indicates the command exceeded its deadline and was killed.
	KindTimedOut ErrorKind = "timed_out"
	// KindNotFound indicates the binary could not be located.
	KindNotFound ErrorKind = "not_found"
	// KindNonZeroExit indicates the command ran but exited non-zero.
	KindNonZeroExit ErrorKind = "non_zero_exit"
)

// ProcessError is returned when a command fails to produce a clean exit.
type ProcessError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process %s: %s: %v", e.Command, e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Spec describes one external command invocation.
type Spec struct {
	// Command is the executable name or path.
	Command string
	// Args are the command arguments.
	Args []string
	// Dir is the working directory (empty = inherit).
	Dir string
	// Timeout overrides the executor default (0 = use default).
	Timeout time.Duration
	// Stdin is optional input piped to the process.
	Stdin []byte
}

// Result captures the outcome of a completed command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner is the narrow process-execution interface the device session
// depends on. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// Config holds executor settings.
type Config struct {
	// DefaultTimeout applies when a Spec omits one (0 = no timeout).
	DefaultTimeout time.Duration
	// MaxConcurrent caps concurrently running commands (0 = default).
	MaxConcurrent int64
}

// DefaultMaxConcurrent allows modest parallelism across connections
// without overloading the bridge tool or emulator.
const DefaultMaxConcurrent = 4

// Executor runs commands via os/exec. Safe for concurrent use; a weighted
// semaphore bounds the number of in-flight processes.
type Executor struct {
	config Config
	sem    *semaphore.Weighted
}

// New creates an Executor with the given configuration.
func New(config Config) *Executor {
	maxConc := config.MaxConcurrent
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrent
	}
	return &Executor{
		config: config,
		sem:    semaphore.NewWeighted(maxConc),
	}
}

// Run executes the command and waits for it to finish. On timeout the
// whole process group is killed so no children outlive the call; the
// semaphore slot is released on every path.
func (e *Executor) Run(ctx context.Context, spec Spec) (Result, error) {
	name := commandName(spec)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		// Acquire fails only when ctx ends; cancellation is not a
		// timeout, so let it surface as-is.
		if errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		return Result{}, &ProcessError{Kind: KindTimedOut, Command: name, Err: err}
	}
	defer e.sem.Release(1)

	timeout := spec.Timeout
	if timeout == 0 {
		timeout = e.config.DefaultTimeout
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Place the child in its own process group and kill the group on
	// cancellation; WaitDelay guarantees Wait returns even if a
	// grandchild holds the output pipes open.
	setProcAttr(cmd)
	cmd.Cancel = func() error { return killGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()

	result := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		if ctx.Err() == context.Canceled {
			result.ExitCode = -1
			return result, context.Canceled
		}
		if runCtx.Err() == context.DeadlineExceeded {
			result.ExitCode = -1
			return result, &ProcessError{
				Kind:    KindTimedOut,
				Command: name,
				Err:     fmt.Errorf("timed out after %s", timeout),
			}
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			result.ExitCode = -1
			return result, &ProcessError{Kind: KindNotFound, Command: name, Err: err}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ProcessError{
				Kind:    KindNonZeroExit,
				Command: name,
				Err:     fmt.Errorf("exit code %d: %s", result.ExitCode, firstLine(stderr.Bytes())),
			}
		}
		result.ExitCode = -1
		return result, &ProcessError{Kind: KindNotFound, Command: name, Err: err}
	}

	result.ExitCode = 0
	return result, nil
}

// commandName renders a short human-readable command line for errors.
func commandName(spec Spec) string {
	if len(spec.Args) == 0 {
		return spec.Command
	}
	s := spec.Command + " " + strings.Join(spec.Args, " ")
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}

// firstLine returns the first non-empty line of output for error messages.
func firstLine(b []byte) string {
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "(no output)"
}
