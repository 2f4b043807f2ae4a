// Package scorestore persists per-game score statistics in a JSON file.
package scorestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/maybe"
)

// DefaultFileName is the statistics file name used by the launcher.
const DefaultFileName = "scores.json"

// Store maps game identifiers to their statistics. It is the only writer of
// its backing file and rewrites the whole file on every mutation.
type Store struct {
	path string
	now  func() time.Time

	mu    sync.Mutex
	games map[string]GameStatistics
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for LastPlayed.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open creates a store backed by path and loads it.
// A *CorruptStoreError is returned when the file exists but is unreadable.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("scorestore: path is required")
	}
	s := &Store{
		path:  path,
		now:   time.Now,
		games: make(map[string]GameStatistics),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory mapping with the contents of the backing file.
// A missing file yields an empty mapping.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.games = make(map[string]GameStatistics)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return &CorruptStoreError{Path: s.path, Err: err}
	}

	// The store never leaves an empty file behind, so one is not ours to
	// overwrite.
	if len(bytes.TrimSpace(data)) == 0 {
		return &CorruptStoreError{Path: s.path, Err: errors.New("empty file")}
	}
	games := make(map[string]GameStatistics)
	if err := json.Unmarshal(data, &games); err != nil {
		return &CorruptStoreError{Path: s.path, Err: err}
	}
	if games == nil {
		return &CorruptStoreError{Path: s.path, Err: errors.New("null document")}
	}
	for id, g := range games {
		if err := g.validate(); err != nil {
			return &CorruptStoreError{Path: s.path, Err: fmt.Errorf("game %q: %w", id, err)}
		}
		if g.Scores == nil {
			g.Scores = []int{}
		}
		g.recompute()
		games[id] = g
	}

	s.mu.Lock()
	s.games = games
	s.mu.Unlock()
	return nil
}

// RecordScore appends score to gameID's statistics, re-derives the
// aggregates and rewrites the backing file. On a *PersistenceError the
// returned statistics still reflect the update, which stays in memory.
func (s *Store) RecordScore(gameID string, score int) (GameStatistics, error) {
	if strings.TrimSpace(gameID) == "" {
		return GameStatistics{}, fmt.Errorf("scorestore: game id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		g = GameStatistics{Scores: []int{}}
	}
	g.append(score, s.now())
	s.games[gameID] = g

	out := g.clone()
	if err := s.saveLocked(); err != nil {
		return out, err
	}
	return out, nil
}

// GetAll returns a copy of every game's statistics.
func (s *Store) GetAll() map[string]GameStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]GameStatistics, len(s.games))
	for id, g := range s.games {
		out[id] = g.clone()
	}
	return out
}

// Get returns the statistics for gameID. A game never played reports false
// and empty statistics.
func (s *Store) Get(gameID string) (GameStatistics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return GameStatistics{}, false
	}
	return g.clone(), true
}

func (s *Store) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Path: s.path, Err: err}
		}
	}
	data, err := json.MarshalIndent(s.games, "", "    ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := maybe.WriteFile(s.path, data, 0o644); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	return nil
}

// MoveAside renames a statistics file out of the way so a fresh store can
// start, returning the new name. Used when the operator chooses to reset a
// corrupt file rather than abort.
func MoveAside(path string, at time.Time) (string, error) {
	target := fmt.Sprintf("%s.corrupt-%s", path, at.UTC().Format("20060102-150405"))
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("scorestore: move aside %s: %w", path, err)
	}
	return target, nil
}
