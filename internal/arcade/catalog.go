package arcade

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MJE43/game-arcade/internal/runner"
)

// GameSpec describes a launchable game.
type GameSpec struct {
	// ID is the key the game's statistics are stored under.
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
	Command     runner.Command `json:"command"`
}

// Catalog is an ordered registry of games.
type Catalog struct {
	specs []GameSpec
	index map[string]int
}

// NewCatalog builds a catalog from specs, in the given order.
func NewCatalog(specs ...GameSpec) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int)}
	for _, spec := range specs {
		if err := c.Register(spec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a game. IDs and aliases must be unique, ignoring case.
func (c *Catalog) Register(spec GameSpec) error {
	if strings.TrimSpace(spec.ID) == "" {
		return errors.New("arcade: game id must not be empty")
	}
	if spec.Command.Path == "" {
		return fmt.Errorf("arcade: game %q has no command", spec.ID)
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}

	keys := append([]string{spec.ID}, spec.Aliases...)
	for _, k := range keys {
		if _, dup := c.index[strings.ToLower(k)]; dup {
			return fmt.Errorf("arcade: duplicate game reference %q", k)
		}
	}
	c.specs = append(c.specs, spec)
	for _, k := range keys {
		c.index[strings.ToLower(k)] = len(c.specs) - 1
	}
	return nil
}

// Get resolves a game by ID or alias.
func (c *Catalog) Get(ref string) (GameSpec, bool) {
	if c == nil {
		return GameSpec{}, false
	}
	i, ok := c.index[strings.ToLower(strings.TrimSpace(ref))]
	if !ok {
		return GameSpec{}, false
	}
	return c.specs[i], true
}

// List returns the games in registration order.
func (c *Catalog) List() []GameSpec {
	if c == nil {
		return nil
	}
	out := make([]GameSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// IDs returns the statistics keys of all games, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.List()))
	for _, s := range c.List() {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

// CatalogConfig locates the bundled games.
type CatalogConfig struct {
	// GamesDir holds the Python game scripts.
	GamesDir string
	// Python is the interpreter used for the script games.
	Python string
	// TicTacToe is the path of the tictactoe binary.
	TicTacToe string
	// CountersFile is passed to tictactoe for its win/draw tallies.
	CountersFile string
}

// DefaultCatalog returns the arcade's standard menu.
func DefaultCatalog(cfg CatalogConfig) *Catalog {
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	script := func(name string) runner.Command {
		return runner.Command{
			Path: python,
			Args: []string{filepath.Join(cfg.GamesDir, name)},
			Dir:  cfg.GamesDir,
		}
	}

	ttt := runner.Command{Path: cfg.TicTacToe, Interactive: true}
	if ttt.Path == "" {
		ttt.Path = "tictactoe"
	}
	if cfg.CountersFile != "" {
		ttt.Args = []string{"-counters", cfg.CountersFile}
	}

	c, err := NewCatalog(
		GameSpec{
			ID:          "MemoryMatch",
			Name:        "Memory Match",
			Description: "Flip cards and find the pairs.",
			Aliases:     []string{"memory", "memory-match"},
			Command:     script("memory_game.py"),
		},
		GameSpec{
			ID:          "Number Guessing",
			Name:        "Number Guessing",
			Description: "Guess the hidden number in as few tries as possible.",
			Aliases:     []string{"guessing", "number-guessing"},
			Command:     script("number_guess.py"),
		},
		GameSpec{
			ID:          "TicTacToe",
			Name:        "Tic-Tac-Toe",
			Description: "Two players, one terminal, three in a row.",
			Aliases:     []string{"tic-tac-toe", "ttt"},
			Command:     ttt,
		},
		GameSpec{
			ID:          "Pong",
			Name:        "Pong",
			Description: "The paddle classic.",
			Command:     script("pong_game.py"),
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}
