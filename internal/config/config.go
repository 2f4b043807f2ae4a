// Package config loads arcade settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MJE43/game-arcade/internal/history"
	"github.com/MJE43/game-arcade/internal/scorestore"
	"github.com/MJE43/game-arcade/internal/tictactoe"
)

const appConfigDirName = "game-arcade"

// Config holds every setting the arcade reads. Paths left empty are derived
// from DataDir by Load.
type Config struct {
	DataDir         string        `env:"ARCADE_DATA_DIR"`
	ScoresFile      string        `env:"ARCADE_SCORES_FILE"`
	HistoryDB       string        `env:"ARCADE_HISTORY_DB"`
	HistoryDisabled bool          `env:"ARCADE_HISTORY_DISABLED"`
	CountersFile    string        `env:"ARCADE_TICTACTOE_COUNTERS"`
	GamesDir        string        `env:"ARCADE_GAMES_DIR"          envDefault:"."`
	TicTacToe       string        `env:"ARCADE_TICTACTOE_BIN"`
	Python          string        `env:"ARCADE_PYTHON"             envDefault:"python3"`
	SessionTimeout  time.Duration `env:"ARCADE_SESSION_TIMEOUT"    envDefault:"10m"`
	HTTPAddr        string        `env:"ARCADE_HTTP_ADDR"          envDefault:"127.0.0.1:17890"`
	CORSOrigins     []string      `env:"ARCADE_CORS_ORIGINS"       envSeparator:","`
	RedisURL        string        `env:"ARCADE_REDIS_URL"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment, applies overrides (command-line flags) and
// then fills in derived defaults, so an overridden DataDir moves every path
// derived from it.
func Load(overrides ...func(*Config) error) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	for _, override := range overrides {
		if err := override(&cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults derives the paths left empty from DataDir and GamesDir.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = appDataDir()
	}
	if c.ScoresFile == "" {
		c.ScoresFile = filepath.Join(c.DataDir, scorestore.DefaultFileName)
	}
	if c.HistoryDB == "" {
		c.HistoryDB = filepath.Join(c.DataDir, history.DefaultFileName)
	}
	if c.CountersFile == "" {
		c.CountersFile = filepath.Join(c.DataDir, tictactoe.DefaultCountersFile)
	}
	if c.TicTacToe == "" {
		c.TicTacToe = defaultTicTacToeBinary(c.GamesDir)
	}
}

// EnsureDataDir creates the data directory.
func (c Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("config: create data dir %s: %w", c.DataDir, err)
	}
	return nil
}

// AdoptLegacyScores moves a scores.json left in the games directory by older
// launchers into the data directory, unless the data directory already has
// one. It returns the path it moved from, or "".
func (c Config) AdoptLegacyScores(logger *log.Logger) string {
	if _, err := os.Stat(c.ScoresFile); !errors.Is(err, os.ErrNotExist) {
		return ""
	}
	legacy := filepath.Join(c.GamesDir, scorestore.DefaultFileName)
	if abs, err := filepath.Abs(legacy); err == nil {
		legacy = abs
	}
	if target, err := filepath.Abs(c.ScoresFile); err == nil && target == legacy {
		return ""
	}
	if _, err := os.Stat(legacy); err != nil {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(c.ScoresFile), 0o755); err != nil {
		logger.Printf("scores migration from %s skipped: %v", legacy, err)
		return ""
	}
	if err := os.Rename(legacy, c.ScoresFile); err != nil {
		logger.Printf("scores migration from %s failed: %v; starting from %s", legacy, err, c.ScoresFile)
		return ""
	}
	logger.Printf("migrated scores from %s to %s", legacy, c.ScoresFile)
	return legacy
}

// appDataDir returns an OS-appropriate writable directory.
func appDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}

// defaultTicTacToeBinary looks next to the running executable, then in the
// games directory, and finally leaves it to PATH.
func defaultTicTacToeBinary(gamesDir string) string {
	name := "tictactoe"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	if gamesDir != "" {
		candidates = append(candidates, filepath.Join(gamesDir, name))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return name
}
