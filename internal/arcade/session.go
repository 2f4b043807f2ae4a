package arcade

import (
	"time"

	"github.com/MJE43/game-arcade/internal/runner"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

// StatusKind is the outcome category shown to the user.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusFailure StatusKind = "failure"
	// StatusWarning means the score was recorded in memory but could not be
	// written to disk.
	StatusWarning StatusKind = "warning"
)

// Session is one launch attempt.
type Session struct {
	ID            string                `json:"id"`
	GameID        string                `json:"game_id"`
	GameName      string                `json:"game_name"`
	Command       runner.Command        `json:"command"`
	StartedAt     time.Time             `json:"started_at"`
	FinishedAt    time.Time             `json:"finished_at"`
	Stdout        string                `json:"-"`
	Score         int                   `json:"score"`
	ScoreFallback bool                  `json:"score_fallback,omitempty"`
	Failure       *runner.LaunchFailure `json:"-"`
}

// Duration of the child process.
func (s Session) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Status is what LaunchAndRecord reports back to the presentation layer.
type Status struct {
	Kind    StatusKind
	Message string
	Session Session
	// Stats is the game's statistics after recording; nil on failure.
	Stats *scorestore.GameStatistics
	// Err carries the persistence problem behind a warning.
	Err error
}

// OK reports whether a score was recorded, even if only in memory.
func (s Status) OK() bool {
	return s.Kind != StatusFailure
}
