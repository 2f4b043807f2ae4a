// Package history keeps an append-only ledger of game sessions, failed
// launches included. It is independent of the statistics file and never feeds
// it.
package history

import (
	"context"
	"time"
)

// DefaultFileName is the ledger database inside the data directory.
const DefaultFileName = "history.db"

// Ledger is the storage interface for session rows.
type Ledger interface {
	Close() error
	Migrate() error
	Append(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, query Query) (*Page, error)
}

// Outcome of a session attempt.
type Outcome string

const (
	OutcomeRecorded Outcome = "recorded"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one ledger row.
type Entry struct {
	ID            string        `json:"id"`
	GameID        string        `json:"game_id"`
	GameName      string        `json:"game_name"`
	Command       string        `json:"command"`
	Outcome       Outcome       `json:"outcome"`
	Score         int           `json:"score"`
	ScoreFallback bool          `json:"score_fallback"`
	FailureReason string        `json:"failure_reason,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`
	ExitCode      int           `json:"exit_code"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
}

// Query selects a page of entries, newest first.
type Query struct {
	GameID  string  `json:"game_id,omitempty"`
	Outcome Outcome `json:"outcome,omitempty"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// Page is a paginated list of entries.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}
