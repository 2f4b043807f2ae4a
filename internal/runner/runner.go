// Package runner launches mini-games as child processes and captures the
// single score line they report on stdout.
package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/exec"
	"time"
)

const (
	// DefaultTimeout bounds a session when Runner.Timeout is zero.
	DefaultTimeout = 10 * time.Minute

	// waitDelay caps how long Wait lingers on stdout/stderr pipes held open
	// by stray grandchildren after the game itself is gone.
	waitDelay = 2 * time.Second
)

// Runner spawns game processes one at a time. A zero Runner is usable.
type Runner struct {
	// Timeout for a whole session. Zero means DefaultTimeout, negative
	// disables the limit.
	Timeout time.Duration
	// Dir is the working directory for commands that do not set their own.
	Dir string
	// Env, when non-nil, replaces the inherited environment.
	Env []string
	// Stdin is handed to commands marked Interactive. Left nil, those games
	// see end of input immediately.
	Stdin io.Reader
	// Display receives a copy of the game's stderr as it is written, so a
	// terminal game can draw its board while stdout stays reserved for the
	// score.
	Display io.Writer
	Logger  *log.Logger
	Now     func() time.Time
}

// New returns a Runner with the given session timeout.
func New(timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout}
}

// Run starts the command, blocks until it exits, the timeout fires or ctx is
// canceled, and returns the captured outcome. Run never returns an error:
// every failure is reported through Result.Failure.
func (r *Runner) Run(ctx context.Context, command Command) Result {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	runCtx := ctx
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command.Path, command.Args...)
	cmd.Dir = command.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.Dir
	}
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Display != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Display)
	}
	interactive := command.Interactive && r.Stdin != nil
	if interactive {
		cmd.Stdin = r.Stdin
	}
	cmd.WaitDelay = waitDelay
	configureCommandProcess(cmd, interactive)

	result := Result{Command: command, StartedAt: now()}
	r.logf("launch %s", command)
	err := cmd.Run()
	result.Duration = now().Sub(result.StartedAt)

	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		err = nil
	}

	switch {
	case err == nil:
		result.Success = &RawResult{Stdout: stdout.String(), Stderr: stderr.String()}
	case ctx.Err() != nil:
		result.Failure = &LaunchFailure{Reason: ReasonCanceled, ExitCode: -1, Stderr: stderr.String(), Err: ctx.Err()}
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Failure = &LaunchFailure{Reason: ReasonTimeout, ExitCode: -1, Stderr: stderr.String(), Err: runCtx.Err()}
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Failure = &LaunchFailure{Reason: ReasonExitStatus, ExitCode: exitErr.ExitCode(), Stderr: stderr.String(), Err: err}
		} else {
			result.Failure = &LaunchFailure{Reason: ReasonStartError, ExitCode: -1, Stderr: stderr.String(), Err: err}
		}
	}

	if result.Failure != nil {
		r.logf("%s failed after %s: %s", command.Path, result.Duration.Round(time.Millisecond), result.Failure.Message())
	} else {
		r.logf("%s exited 0 after %s", command.Path, result.Duration.Round(time.Millisecond))
	}
	return result
}

func (r *Runner) logf(format string, args ...any) {
	logger := r.Logger
	if logger == nil {
		logger = defaultLogger
	}
	logger.Printf(format, args...)
}

var defaultLogger = log.New(os.Stderr, "[RUNNER] ", log.LstdFlags)
