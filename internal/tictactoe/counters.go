package tictactoe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/maybe"
)

// DefaultCountersFile is where the game keeps its running tallies.
const DefaultCountersFile = "tictactoe_scores.json"

const lastPlayedLayout = "2006-01-02 15:04:05"

// Counters are the match tallies kept across runs.
type Counters struct {
	PlayerOneWins int    `json:"player_one_wins"`
	PlayerTwoWins int    `json:"player_two_wins"`
	Draws         int    `json:"draws"`
	LastPlayed    string `json:"last_played,omitempty"`
}

// Played is the number of finished matches.
func (c Counters) Played() int {
	return c.PlayerOneWins + c.PlayerTwoWins + c.Draws
}

// countersFile also accepts the X/O keys written by older versions.
type countersFile struct {
	Counters
	PlayerX *int `json:"player_x,omitempty"`
	PlayerO *int `json:"player_o,omitempty"`
}

// CounterStore owns the counters file. Only the game process writes it.
type CounterStore struct {
	path string
	now  func() time.Time

	mu       sync.Mutex
	counters Counters
}

// OpenCounters loads the counters at path. A missing file starts at zero.
func OpenCounters(path string) (*CounterStore, error) {
	s := &CounterStore{path: path, now: time.Now}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tictactoe: read counters: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	var f countersFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("tictactoe: decode counters %s: %w", path, err)
	}
	if f.PlayerX != nil && f.PlayerOneWins == 0 {
		f.PlayerOneWins = *f.PlayerX
	}
	if f.PlayerO != nil && f.PlayerTwoWins == 0 {
		f.PlayerTwoWins = *f.PlayerO
	}
	s.counters = f.Counters
	return s, nil
}

// Counters returns the current tallies.
func (s *CounterStore) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// RecordResult bumps the winner's tally (or draws for Empty) and writes the
// file immediately.
func (s *CounterStore) RecordResult(winner Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch winner {
	case PlayerOne:
		s.counters.PlayerOneWins++
	case PlayerTwo:
		s.counters.PlayerTwoWins++
	default:
		s.counters.Draws++
	}
	s.counters.LastPlayed = s.now().Format(lastPlayedLayout)

	data, err := json.MarshalIndent(s.counters, "", "    ")
	if err != nil {
		return fmt.Errorf("tictactoe: encode counters: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tictactoe: create counters dir: %w", err)
		}
	}
	if err := maybe.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("tictactoe: write counters %s: %w", s.path, err)
	}
	return nil
}
