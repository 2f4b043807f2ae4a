package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FailureReason classifies why a launch produced no score.
type FailureReason string

const (
	ReasonStartError FailureReason = "start_error"
	ReasonExitStatus FailureReason = "exit_status"
	ReasonTimeout    FailureReason = "timeout"
	ReasonCanceled   FailureReason = "canceled"
)

// Command references a game executable.
type Command struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	Dir  string   `json:"dir,omitempty"`
	// Interactive games read the player's input from the launcher's stdin.
	Interactive bool `json:"interactive,omitempty"`
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// RawResult is the captured output of a child that exited with status 0.
type RawResult struct {
	Stdout string
	Stderr string
}

// LaunchFailure describes a child that could not start, exited non-zero,
// timed out or was canceled. It is a value, not an error: the score pipeline
// branches on it instead of unwinding.
type LaunchFailure struct {
	Reason   FailureReason
	ExitCode int
	Stderr   string
	Err      error
}

// Message renders a short human-readable reason.
func (f LaunchFailure) Message() string {
	detail := strings.TrimSpace(f.Stderr)
	if i := strings.LastIndexByte(detail, '\n'); i >= 0 {
		detail = strings.TrimSpace(detail[i+1:])
	}

	switch f.Reason {
	case ReasonExitStatus:
		if detail != "" {
			return fmt.Sprintf("exit status %d: %s", f.ExitCode, detail)
		}
		return fmt.Sprintf("exit status %d", f.ExitCode)
	case ReasonTimeout:
		return "timed out"
	case ReasonCanceled:
		return "canceled"
	default:
		if f.Err != nil {
			return f.Err.Error()
		}
		return string(f.Reason)
	}
}

// Result is the outcome of one launch: exactly one of Success and Failure is set.
type Result struct {
	Command   Command
	StartedAt time.Time
	Duration  time.Duration
	Success   *RawResult
	Failure   *LaunchFailure
}

// OK reports whether the child exited with status 0.
func (r Result) OK() bool {
	return r.Success != nil && r.Failure == nil
}

// Score is a parsed session score. Fallback marks output that did not follow
// the protocol and was recorded as zero.
type Score struct {
	Value    int
	Fallback bool
}

// ParseScore applies the score-reporting protocol: the whole of stdout,
// trimmed, must be a single base-10 integer. Anything else (empty, text,
// several lines) counts as 0 with Fallback set.
func ParseScore(stdout string) Score {
	v, err := strconv.Atoi(strings.TrimSpace(stdout))
	if err != nil {
		return Score{Value: 0, Fallback: true}
	}
	return Score{Value: v}
}
