// Package arcade ties the game catalog, the process runner and the score
// store together: it launches a game, turns the child's output into a score
// and records it.
package arcade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MJE43/game-arcade/internal/runner"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

var (
	ErrUnknownGame     = errors.New("arcade: unknown game")
	ErrSessionInFlight = errors.New("arcade: a game session is already running")
)

// ScoreRecorder is the statistics store.
type ScoreRecorder interface {
	RecordScore(gameID string, score int) (scorestore.GameStatistics, error)
	GetAll() map[string]scorestore.GameStatistics
	Get(gameID string) (scorestore.GameStatistics, bool)
}

// ProcessRunner launches a game and waits for it.
type ProcessRunner interface {
	Run(ctx context.Context, command runner.Command) runner.Result
}

// SessionLedger keeps a log of every attempt, failed ones included.
type SessionLedger interface {
	RecordSession(ctx context.Context, session Session) error
}

// EventPublisher announces recorded sessions to external consumers.
type EventPublisher interface {
	PublishSession(ctx context.Context, session Session, stats scorestore.GameStatistics) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLedger(l SessionLedger) Option { return func(o *Orchestrator) { o.ledger = l } }

func WithPublisher(p EventPublisher) Option { return func(o *Orchestrator) { o.publisher = p } }

func WithLogger(l *log.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// Orchestrator runs at most one game session at a time.
type Orchestrator struct {
	store     ScoreRecorder
	runner    ProcessRunner
	catalog   *Catalog
	ledger    SessionLedger
	publisher EventPublisher
	logger    *log.Logger
	newID     func() string

	mu sync.Mutex
}

// New wires an orchestrator. catalog may be nil when only LaunchCommand is
// used.
func New(store ScoreRecorder, r ProcessRunner, catalog *Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		runner:  r,
		catalog: catalog,
		logger:  log.New(os.Stderr, "[ARCADE] ", log.LstdFlags),
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Catalog returns the games this orchestrator can launch.
func (o *Orchestrator) Catalog() *Catalog { return o.catalog }

// LaunchAndRecord launches the catalog game gameID, waits for it and records
// its score. Launch failures come back as a StatusFailure with no statistics
// change; the error is reserved for unknown games. Calls queue behind a
// running session.
func (o *Orchestrator) LaunchAndRecord(ctx context.Context, gameID string) (Status, error) {
	spec, err := o.resolve(gameID)
	if err != nil {
		return Status{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run(ctx, spec), nil
}

// TryLaunch is LaunchAndRecord that returns ErrSessionInFlight instead of
// waiting for a running session.
func (o *Orchestrator) TryLaunch(ctx context.Context, gameID string) (Status, error) {
	spec, err := o.resolve(gameID)
	if err != nil {
		return Status{}, err
	}
	if !o.mu.TryLock() {
		return Status{}, ErrSessionInFlight
	}
	defer o.mu.Unlock()
	return o.run(ctx, spec), nil
}

// LaunchCommand runs an explicit executable and records its score under
// gameID. gameID need not be in the catalog.
func (o *Orchestrator) LaunchCommand(ctx context.Context, gameID string, command runner.Command) (Status, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return Status{}, fmt.Errorf("%w: empty id", ErrUnknownGame)
	}
	if command.Path == "" {
		return Status{}, errors.New("arcade: empty command")
	}
	spec := GameSpec{ID: gameID, Name: gameID, Command: command}
	if known, ok := o.catalog.Get(gameID); ok {
		spec.ID, spec.Name = known.ID, known.Name
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run(ctx, spec), nil
}

func (o *Orchestrator) resolve(gameID string) (GameSpec, error) {
	spec, ok := o.catalog.Get(gameID)
	if !ok {
		return GameSpec{}, fmt.Errorf("%w: %q", ErrUnknownGame, gameID)
	}
	return spec, nil
}

func (o *Orchestrator) run(ctx context.Context, spec GameSpec) Status {
	session := Session{
		ID:       o.newID(),
		GameID:   spec.ID,
		GameName: spec.Name,
		Command:  spec.Command,
	}

	res := o.runner.Run(ctx, spec.Command)
	session.StartedAt = res.StartedAt
	session.FinishedAt = res.StartedAt.Add(res.Duration)

	if !res.OK() {
		session.Failure = res.Failure
		status := Status{
			Kind:    StatusFailure,
			Message: fmt.Sprintf("%s failed to launch: %s", spec.ID, failureMessage(res.Failure)),
			Session: session,
		}
		o.logger.Printf("session %s: %s", session.ID, status.Message)
		o.finish(ctx, status)
		return status
	}

	score := runner.ParseScore(res.Success.Stdout)
	session.Stdout = res.Success.Stdout
	session.Score = score.Value
	session.ScoreFallback = score.Fallback
	if score.Fallback {
		o.logger.Printf("session %s: %s reported no numeric score, recording 0", session.ID, spec.ID)
	}

	status := Status{
		Kind:    StatusSuccess,
		Message: fmt.Sprintf("%s completed! Score: %d", spec.ID, score.Value),
		Session: session,
	}

	stats, err := o.store.RecordScore(spec.ID, score.Value)
	if err != nil {
		status.Kind = StatusWarning
		status.Err = err
		status.Message += " (statistics not saved)"
		var perr *scorestore.PersistenceError
		if errors.As(err, &perr) {
			status.Stats = &stats
		}
		o.logger.Printf("session %s: record score: %v", session.ID, err)
	} else {
		status.Stats = &stats
	}

	o.finish(ctx, status)
	return status
}

func failureMessage(f *runner.LaunchFailure) string {
	if f == nil {
		return "unknown error"
	}
	return f.Message()
}

// finish appends the ledger row and publishes the event. Neither can fail
// the session.
func (o *Orchestrator) finish(ctx context.Context, status Status) {
	if o.ledger != nil {
		if err := o.ledger.RecordSession(ctx, status.Session); err != nil {
			o.logger.Printf("session %s: ledger: %v", status.Session.ID, err)
		}
	}
	if o.publisher != nil && status.Stats != nil {
		if err := o.publisher.PublishSession(ctx, status.Session, *status.Stats); err != nil {
			o.logger.Printf("session %s: publish: %v", status.Session.ID, err)
		}
	}
}

// Stats returns a copy of every game's statistics.
func (o *Orchestrator) Stats() map[string]scorestore.GameStatistics {
	return o.store.GetAll()
}

// StatsFor returns one game's statistics, resolving catalog aliases. A game
// that was never played yields empty statistics.
func (o *Orchestrator) StatsFor(gameID string) scorestore.GameStatistics {
	key := strings.TrimSpace(gameID)
	if spec, ok := o.catalog.Get(key); ok {
		key = spec.ID
	}
	stats, _ := o.store.Get(key)
	return stats
}
