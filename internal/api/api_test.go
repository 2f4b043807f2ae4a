package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/history"
	"github.com/MJE43/game-arcade/internal/runner"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

// fakeLauncher is a simple mock implementation of Launcher for testing
type fakeLauncher struct {
	catalog  *arcade.Catalog
	stats    map[string]scorestore.GameStatistics
	status   arcade.Status
	err      error
	launched []string
}

func (f *fakeLauncher) TryLaunch(_ context.Context, gameID string) (arcade.Status, error) {
	f.launched = append(f.launched, gameID)
	return f.status, f.err
}

func (f *fakeLauncher) Stats() map[string]scorestore.GameStatistics { return f.stats }

func (f *fakeLauncher) StatsFor(gameID string) scorestore.GameStatistics {
	if spec, ok := f.catalog.Get(gameID); ok {
		gameID = spec.ID
	}
	return f.stats[gameID]
}

func (f *fakeLauncher) Catalog() *arcade.Catalog { return f.catalog }

type fakeSessions struct {
	page    *history.Page
	entries map[string]history.Entry
	err     error
	queries []history.Query
}

func (f *fakeSessions) List(_ context.Context, q history.Query) (*history.Page, error) {
	f.queries = append(f.queries, q)
	return f.page, f.err
}

func (f *fakeSessions) Get(_ context.Context, id string) (*history.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return &e, nil
}

func newFakeLauncher(t *testing.T) *fakeLauncher {
	t.Helper()
	catalog, err := arcade.NewCatalog(
		arcade.GameSpec{ID: "Pong", Name: "Pong", Command: runner.Command{Path: "python3", Args: []string{"pong_game.py"}}},
		arcade.GameSpec{ID: "TicTacToe", Name: "Tic-Tac-Toe", Aliases: []string{"ttt"}, Command: runner.Command{Path: "tictactoe", Interactive: true}},
		arcade.GameSpec{ID: "Number Guessing", Aliases: []string{"guessing"}, Command: runner.Command{Path: "python3"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeLauncher{
		catalog: catalog,
		stats: map[string]scorestore.GameStatistics{
			"Pong":            {Scores: []int{3, 9}, TotalPlays: 2, AverageScore: 6, HighScore: 9},
			"Number Guessing": {Scores: []int{4}, TotalPlays: 1, AverageScore: 4, HighScore: 4},
		},
	}
}

func newTestServer(l Launcher, sessions SessionLister) http.Handler {
	return NewServer(l, sessions, WithLogger(log.New(io.Discard, "", 0))).Routes()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp HealthCheckResponse
	decode(t, w, &resp)
	if resp.Status != HealthStatusHealthy {
		t.Errorf("Status = %s", resp.Status)
	}
	if resp.Checks["catalog"].Message != "3 games available" {
		t.Errorf("catalog check = %+v", resp.Checks["catalog"])
	}
	if resp.RequestID == "" {
		t.Error("Expected request id")
	}
}

func TestHealthDegradedWhenLedgerFails(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), &fakeSessions{err: errors.New("database is locked")})

	w := do(t, h, "GET", "/health")
	var resp HealthCheckResponse
	decode(t, w, &resp)
	if resp.Status != HealthStatusDegraded || w.Code != http.StatusOK {
		t.Errorf("Status = %s (%d), want degraded 200", resp.Status, w.Code)
	}
}

func TestGamesEndpoint(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/api/v1/games")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Arcade-Version") == "" {
		t.Error("Expected version header")
	}
	var resp GamesResponse
	decode(t, w, &resp)
	if len(resp.Games) != 3 || resp.Games[0].ID != "Pong" {
		t.Fatalf("Games = %+v", resp.Games)
	}
	if !resp.Games[1].Interactive {
		t.Error("TicTacToe should be reported as interactive")
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp StatsResponse
	decode(t, w, &resp)
	if len(resp.Games) != 2 {
		t.Fatalf("Games = %+v", resp.Games)
	}
	if resp.Games[0].GameID != "Number Guessing" || resp.Games[1].GameID != "Pong" {
		t.Errorf("order = %s, %s; want sorted ids", resp.Games[0].GameID, resp.Games[1].GameID)
	}
	pong := resp.Games[1]
	if pong.TotalPlays != 2 || pong.HighScore != 9 || pong.AverageDisplay != "6.0" || !pong.Played {
		t.Errorf("Pong = %+v", pong)
	}
}

func TestGameStatsEndpoint(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/api/v1/stats/guessing")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var view GameStatsView
	decode(t, w, &view)
	if view.GameID != "Number Guessing" || view.TotalPlays != 1 {
		t.Errorf("view = %+v", view)
	}

	w = do(t, h, "GET", "/api/v1/stats/Number%20Guessing")
	decode(t, w, &view)
	if view.GameID != "Number Guessing" {
		t.Errorf("escaped id resolved to %q", view.GameID)
	}
}

func TestGameStatsUnplayedIsEmptyNotError(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/api/v1/stats/ttt")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var view GameStatsView
	decode(t, w, &view)
	if view.Played || view.TotalPlays != 0 || view.AverageDisplay != "no data" {
		t.Errorf("view = %+v, want empty", view)
	}
	if view.Scores == nil {
		t.Error("scores should encode as an empty list")
	}
}

func TestLaunchEndpoint(t *testing.T) {
	l := newFakeLauncher(t)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stats := scorestore.GameStatistics{Scores: []int{3, 9, 7}, TotalPlays: 3, AverageScore: 19.0 / 3, HighScore: 9}
	l.status = arcade.Status{
		Kind:    arcade.StatusSuccess,
		Message: "Pong completed! Score: 7",
		Session: arcade.Session{ID: "s1", GameID: "Pong", GameName: "Pong", Score: 7, StartedAt: started, FinishedAt: started.Add(2 * time.Second)},
		Stats:   &stats,
	}
	h := newTestServer(l, nil)

	w := do(t, h, "POST", "/api/v1/games/pong/launch")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(l.launched) != 1 || l.launched[0] != "Pong" {
		t.Errorf("launched = %v, want [Pong]", l.launched)
	}
	var resp LaunchResponse
	decode(t, w, &resp)
	if resp.Status != arcade.StatusSuccess || resp.Message != "Pong completed! Score: 7" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Stats == nil || resp.Stats.TotalPlays != 3 || resp.Stats.AverageDisplay != "6.3" {
		t.Errorf("Stats = %+v", resp.Stats)
	}
	if resp.DurationMs != 2000 {
		t.Errorf("DurationMs = %d", resp.DurationMs)
	}
}

func TestLaunchFailureIsReportedInBody(t *testing.T) {
	l := newFakeLauncher(t)
	l.status = arcade.Status{
		Kind:    arcade.StatusFailure,
		Message: "Pong failed to launch: timed out",
		Session: arcade.Session{ID: "s2", GameID: "Pong", Failure: &runner.LaunchFailure{Reason: runner.ReasonTimeout}},
	}
	h := newTestServer(l, nil)

	w := do(t, h, "POST", "/api/v1/games/Pong/launch")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp LaunchResponse
	decode(t, w, &resp)
	if resp.Status != arcade.StatusFailure || resp.FailureReason != "timeout" || resp.Stats != nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestLaunchErrors(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		err     error
		code    int
		errType string
	}{
		{"unknown game", "/api/v1/games/chess/launch", nil, http.StatusNotFound, ErrTypeGameNotFound},
		{"interactive game", "/api/v1/games/ttt/launch", nil, http.StatusUnprocessableEntity, ErrTypeInteractiveGame},
		{"session in flight", "/api/v1/games/pong/launch", arcade.ErrSessionInFlight, http.StatusConflict, ErrTypeSessionInFlight},
		{"unexpected", "/api/v1/games/pong/launch", errors.New("boom"), http.StatusInternalServerError, ErrTypeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newFakeLauncher(t)
			l.err = tc.err
			h := newTestServer(l, nil)

			w := do(t, h, "POST", tc.path)
			if w.Code != tc.code {
				t.Fatalf("Expected status %d, got %d", tc.code, w.Code)
			}
			var apiErr APIError
			decode(t, w, &apiErr)
			if apiErr.Type != tc.errType {
				t.Errorf("Type = %q, want %q", apiErr.Type, tc.errType)
			}
			if apiErr.RequestID == "" || apiErr.Timestamp == "" {
				t.Errorf("missing request id or timestamp: %+v", apiErr)
			}
			if w.Header().Get("X-Error-Type") != tc.errType {
				t.Errorf("X-Error-Type = %q", w.Header().Get("X-Error-Type"))
			}
			if tc.err != nil && tc.code == http.StatusInternalServerError && apiErr.Context["cause"] != tc.err.Error() {
				t.Errorf("cause = %v, want %q", apiErr.Context["cause"], tc.err.Error())
			}
		})
	}
}

func TestSessionsEndpoint(t *testing.T) {
	sessions := &fakeSessions{page: &history.Page{
		Entries:    []history.Entry{{ID: "a", GameID: "Pong", Outcome: history.OutcomeRecorded, Score: 3}},
		TotalCount: 1, Page: 2, PerPage: 5, TotalPages: 1,
	}}
	h := newTestServer(newFakeLauncher(t), sessions)

	w := do(t, h, "GET", "/api/v1/sessions?page=2&per_page=5&game=guessing&outcome=failed")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	q := sessions.queries[0]
	if q.Page != 2 || q.PerPage != 5 || q.GameID != "Number Guessing" || q.Outcome != history.OutcomeFailed {
		t.Errorf("query = %+v", q)
	}
	var page history.Page
	decode(t, w, &page)
	if len(page.Entries) != 1 || page.Entries[0].ID != "a" {
		t.Errorf("page = %+v", page)
	}
}

func TestSessionByID(t *testing.T) {
	sessions := &fakeSessions{entries: map[string]history.Entry{
		"a": {ID: "a", GameID: "Pong", Outcome: history.OutcomeRecorded, Score: 3},
	}}
	h := newTestServer(newFakeLauncher(t), sessions)

	w := do(t, h, "GET", "/api/v1/sessions/a")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var e history.Entry
	decode(t, w, &e)
	if e.ID != "a" || e.Score != 3 {
		t.Errorf("entry = %+v", e)
	}

	w = do(t, h, "GET", "/api/v1/sessions/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	var apiErr APIError
	decode(t, w, &apiErr)
	if apiErr.Type != ErrTypeSessionNotFound {
		t.Errorf("Type = %q", apiErr.Type)
	}

	w = do(t, newTestServer(newFakeLauncher(t), nil), "GET", "/api/v1/sessions/a")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled ledger: status %d, want 503", w.Code)
	}
}

func TestLedgerDeadlineIsTimeout(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), &fakeSessions{err: context.DeadlineExceeded})

	w := do(t, h, "GET", "/api/v1/sessions")
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("Expected status 504, got %d", w.Code)
	}
	var apiErr APIError
	decode(t, w, &apiErr)
	if apiErr.Type != ErrTypeTimeout {
		t.Errorf("Type = %q, want %q", apiErr.Type, ErrTypeTimeout)
	}
	if w.Header().Get("X-Error-Category") != string(CategoryTimeout) {
		t.Errorf("X-Error-Category = %q", w.Header().Get("X-Error-Category"))
	}
}

func TestTimeoutMiddlewareWritesStructuredError(t *testing.T) {
	srv := NewServer(newFakeLauncher(t), nil, WithLogger(log.New(io.Discard, "", 0)))
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	h := srv.timeout(10 * time.Millisecond)(slow)

	w := do(t, h, "GET", "/api/v1/stats")
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("Expected status 504, got %d", w.Code)
	}
	var apiErr APIError
	decode(t, w, &apiErr)
	if apiErr.Type != ErrTypeTimeout || apiErr.Context["timeout"] != "10ms" {
		t.Errorf("apiErr = %+v", apiErr)
	}

	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	w = do(t, srv.timeout(time.Second)(fast), "GET", "/api/v1/stats")
	if w.Code != http.StatusNoContent {
		t.Errorf("fast handler status = %d, want 204", w.Code)
	}
}

func TestSessionsBadOutcome(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), &fakeSessions{page: &history.Page{}})

	w := do(t, h, "GET", "/api/v1/sessions?outcome=maybe")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
}

func TestSessionsDisabled(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	w := do(t, h, "GET", "/api/v1/sessions")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(newFakeLauncher(t), nil)

	req := httptest.NewRequest("OPTIONS", "/api/v1/games/pong/launch", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest("OPTIONS", "/api/v1/games/pong/launch", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := NewServer(newFakeLauncher(t), nil, WithAddr("127.0.0.1:0"), WithLogger(log.New(io.Discard, "", 0)))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/version")
	if err != nil {
		t.Fatalf("GET /version: %v", err)
	}
	defer resp.Body.Close()
	var v VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Version != Version {
		t.Errorf("Version = %q", v.Version)
	}
}

func TestDefaultLoggerWritesToStderr(t *testing.T) {
	srv := NewServer(newFakeLauncher(t), nil)
	if srv.logger.Writer() != os.Stderr {
		t.Error("API logger should write to stderr so stdout stays free for command output")
	}
}
