package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/runner"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

	e := &Entry{
		GameID:    "TicTacToe",
		GameName:  "Tic-Tac-Toe",
		Command:   "tictactoe -counters x.json",
		Score:     1,
		StartedAt: started,
		Duration:  42 * time.Second,
	}
	if err := db.Append(ctx, e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == "" {
		t.Fatal("Append did not assign an id")
	}
	if e.Outcome != OutcomeRecorded {
		t.Errorf("Outcome = %q, want recorded", e.Outcome)
	}

	got, err := db.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GameID != "TicTacToe" || got.Score != 1 || got.Command != e.Command {
		t.Errorf("Get = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %s, want %s", got.StartedAt, started)
	}
	if got.Duration != 42*time.Second {
		t.Errorf("Duration = %s", got.Duration)
	}
}

func TestGetUnknownID(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirstWithPagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	games := []string{"Pong", "TicTacToe", "Pong", "MemoryMatch", "Pong"}
	for i, g := range games {
		e := &Entry{GameID: g, GameName: g, Command: g, Score: i, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.Append(ctx, e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	page, err := db.List(ctx, Query{Page: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalCount != 5 || page.TotalPages != 3 {
		t.Errorf("TotalCount = %d, TotalPages = %d; want 5, 3", page.TotalCount, page.TotalPages)
	}
	if len(page.Entries) != 2 || page.Entries[0].Score != 4 || page.Entries[1].Score != 3 {
		t.Errorf("first page = %+v, want scores 4, 3", page.Entries)
	}

	last, err := db.List(ctx, Query{Page: 3, PerPage: 2})
	if err != nil {
		t.Fatalf("List page 3: %v", err)
	}
	if len(last.Entries) != 1 || last.Entries[0].Score != 0 {
		t.Errorf("last page = %+v", last.Entries)
	}

	pong, err := db.List(ctx, Query{GameID: "Pong"})
	if err != nil {
		t.Fatalf("List Pong: %v", err)
	}
	if pong.TotalCount != 3 || pong.PerPage != defaultPerPage {
		t.Errorf("Pong page = %+v", pong)
	}
}

func TestListSubSecondOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{0, 500 * time.Millisecond, time.Second} {
		if err := db.Append(ctx, &Entry{GameID: "Pong", GameName: "Pong", Command: "p", Score: i, StartedAt: base.Add(offset)}); err != nil {
			t.Fatal(err)
		}
	}
	page, err := db.List(ctx, Query{})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{2, 1, 0} {
		if page.Entries[i].Score != want {
			t.Errorf("entry %d score = %d, want %d", i, page.Entries[i].Score, want)
		}
	}
}

func TestListEmpty(t *testing.T) {
	db := newTestDB(t)
	page, err := db.List(context.Background(), Query{PerPage: 10000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Entries == nil || len(page.Entries) != 0 {
		t.Errorf("Entries = %#v, want empty slice", page.Entries)
	}
	if page.PerPage != maxPerPage {
		t.Errorf("PerPage = %d, want clamp to %d", page.PerPage, maxPerPage)
	}
}

func TestRecordSessionFromOrchestrator(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ok := arcade.Session{
		ID:         "11111111-1111-1111-1111-111111111111",
		GameID:     "Pong",
		GameName:   "Pong",
		Command:    runner.Command{Path: "python3", Args: []string{"pong_game.py"}},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Score:      9,
	}
	failed := arcade.Session{
		ID:        "22222222-2222-2222-2222-222222222222",
		GameID:    "MemoryMatch",
		GameName:  "Memory Match",
		Command:   runner.Command{Path: "python3", Args: []string{"memory_game.py"}},
		StartedAt: started.Add(2 * time.Minute),
		Failure:   &runner.LaunchFailure{Reason: runner.ReasonExitStatus, ExitCode: 2, Stderr: "can't open file\n"},
	}

	for _, s := range []arcade.Session{ok, failed} {
		if err := db.RecordSession(ctx, s); err != nil {
			t.Fatalf("RecordSession %s: %v", s.ID, err)
		}
	}

	got, err := db.Get(ctx, ok.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != OutcomeRecorded || got.Score != 9 || got.Command != "python3 pong_game.py" || got.Duration != time.Minute {
		t.Errorf("recorded entry = %+v", got)
	}

	got, err = db.Get(ctx, failed.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Outcome != OutcomeFailed || got.ExitCode != 2 || got.FailureReason != string(runner.ReasonExitStatus) {
		t.Errorf("failed entry = %+v", got)
	}
	if got.FailureDetail != "exit status 2: can't open file" {
		t.Errorf("FailureDetail = %q", got.FailureDetail)
	}

	failures, err := db.List(ctx, Query{Outcome: OutcomeFailed})
	if err != nil {
		t.Fatal(err)
	}
	if failures.TotalCount != 1 {
		t.Errorf("failed count = %d, want 1", failures.TotalCount)
	}
}

func TestMigrationIdempotency(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate again: %v", err)
		}
	}
	e := &Entry{GameID: "Pong", GameName: "Pong", Command: "p", StartedAt: time.Now()}
	if err := db.Append(context.Background(), e); err != nil {
		t.Fatalf("Append after migrations: %v", err)
	}
	db.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), e.ID); err != nil {
		t.Errorf("entry lost across reopen: %v", err)
	}
}
