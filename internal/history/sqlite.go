package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/MJE43/game-arcade/internal/arcade"
)

const (
	defaultPerPage = 20
	maxPerPage     = 500
	// Fixed width so started_at sorts correctly as text.
	timeLayout     = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history: entry not found")

// SQLiteDB implements Ledger on SQLite.
type SQLiteDB struct {
	db *sql.DB
}

var _ Ledger = (*SQLiteDB)(nil)

// NewSQLiteDB opens (or creates) the ledger at path. Use ":memory:" in tests.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// One connection: writes are serialized anyway and ":memory:" is per
	// connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set busy timeout: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Open opens the ledger and runs migrations.
func Open(path string) (*SQLiteDB, error) {
	db, err := NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. It is safe to run on every start.
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			game_name TEXT NOT NULL,
			command TEXT NOT NULL,
			outcome TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			score_fallback INTEGER NOT NULL DEFAULT 0,
			failure_reason TEXT,
			failure_detail TEXT,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, m := range baseMigrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("history: base migration: %w", err)
		}
	}

	alterMigrations := []string{
		`ALTER TABLE sessions ADD COLUMN exit_code INTEGER DEFAULT 0`,
	}
	for _, m := range alterMigrations {
		if _, err := s.db.Exec(m); err != nil && !isDuplicateColumnError(err) {
			return fmt.Errorf("history: alter migration: %w", err)
		}
	}

	indexMigrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_game_started ON sessions(game_id, started_at DESC)`,
	}
	for _, m := range indexMigrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("history: index migration: %w", err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

// Append inserts an entry, assigning an id when it has none.
func (s *SQLiteDB) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeRecorded
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (
		id, game_id, game_name, command, outcome, score, score_fallback,
		failure_reason, failure_detail, exit_code, started_at, duration_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GameID, e.GameName, e.Command, string(e.Outcome), e.Score, boolToInt(e.ScoreFallback),
		nullString(e.FailureReason), nullString(e.FailureDetail), e.ExitCode,
		e.StartedAt.UTC().Format(timeLayout), int64(e.Duration),
	)
	if err != nil {
		return fmt.Errorf("history: insert session %s: %w", e.ID, err)
	}
	return nil
}

// RecordSession appends the summary row for an orchestrator session.
func (s *SQLiteDB) RecordSession(ctx context.Context, session arcade.Session) error {
	return s.Append(ctx, EntryFromSession(session))
}

// EntryFromSession flattens a session into a ledger row.
func EntryFromSession(session arcade.Session) *Entry {
	e := &Entry{
		ID:            session.ID,
		GameID:        session.GameID,
		GameName:      session.GameName,
		Command:       session.Command.String(),
		Outcome:       OutcomeRecorded,
		Score:         session.Score,
		ScoreFallback: session.ScoreFallback,
		StartedAt:     session.StartedAt,
		Duration:      session.Duration(),
	}
	if f := session.Failure; f != nil {
		e.Outcome = OutcomeFailed
		e.Score = 0
		e.FailureReason = string(f.Reason)
		e.FailureDetail = f.Message()
		e.ExitCode = f.ExitCode
	}
	return e
}

const selectColumns = `id, game_id, game_name, command, outcome, score, score_fallback,
		failure_reason, failure_detail, exit_code, started_at, duration_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e             Entry
		outcome       string
		fallback      int
		reason        sql.NullString
		detail        sql.NullString
		exitCode      sql.NullInt64
		startedAt     string
		durationNanos int64
	)
	if err := row.Scan(&e.ID, &e.GameID, &e.GameName, &e.Command, &outcome, &e.Score, &fallback,
		&reason, &detail, &exitCode, &startedAt, &durationNanos); err != nil {
		return Entry{}, err
	}
	e.Outcome = Outcome(outcome)
	e.ScoreFallback = fallback == 1
	e.FailureReason = reason.String
	e.FailureDetail = detail.String
	e.ExitCode = int(exitCode.Int64)
	e.Duration = time.Duration(durationNanos)

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("history: parse started_at %q: %w", startedAt, err)
	}
	e.StartedAt = t
	return e, nil
}

// Get returns one entry by id.
func (s *SQLiteDB) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sessions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get session %s: %w", id, err)
	}
	return &e, nil
}

// List returns a page of entries, newest first.
func (s *SQLiteDB) List(ctx context.Context, query Query) (*Page, error) {
	if query.PerPage <= 0 {
		query.PerPage = defaultPerPage
	}
	if query.PerPage > maxPerPage {
		query.PerPage = maxPerPage
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	var (
		conds []string
		args  []any
	)
	if query.GameID != "" {
		conds = append(conds, "game_id = ?")
		args = append(args, query.GameID)
	}
	if query.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(query.Outcome))
	}
	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions `+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("history: count sessions: %w", err)
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+`
		FROM sessions `+whereClause+`
		ORDER BY started_at DESC, created_at DESC
		LIMIT ? OFFSET ?`, append(args, query.PerPage, offset)...)
	if err != nil {
		return nil, fmt.Errorf("history: query sessions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan session: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate sessions: %w", err)
	}

	return &Page{
		Entries:    entries,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
