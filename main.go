// Command arcade launches the bundled mini-games, records the score each one
// reports and shows the accumulated statistics. It can also serve the same
// operations over a loopback HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MJE43/game-arcade/internal/api"
	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/config"
	"github.com/MJE43/game-arcade/internal/history"
	"github.com/MJE43/game-arcade/internal/publisher"
	"github.com/MJE43/game-arcade/internal/runner"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

const usage = `usage: arcade [flags] <command> [args]

commands:
  games                      list the available games
  launch <game> [-- cmd...]  play a game and record its score
  stats [game]               show score statistics
  history [-n N] [-game G]   show recent sessions
  serve                      serve the HTTP API

flags:
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process globals. It returns the exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arcade", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	resetCorrupt := fs.Bool("reset-corrupt", false, "move an unreadable statistics file aside and start fresh")

	cfg, err := config.Load(func(cfg *config.Config) error {
		fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for scores and history")
		fs.StringVar(&cfg.ScoresFile, "scores", cfg.ScoresFile, "statistics file")
		fs.StringVar(&cfg.GamesDir, "games-dir", cfg.GamesDir, "directory holding the game scripts")
		fs.DurationVar(&cfg.SessionTimeout, "timeout", cfg.SessionTimeout, "session time limit (negative for none)")
		fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address for serve")
		fs.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "publish completed sessions to this Redis")
		fs.BoolVar(&cfg.HistoryDisabled, "no-history", cfg.HistoryDisabled, "do not keep the session ledger")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	})
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "arcade: %v\n", err)
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := log.New(stderr, "[ARCADE] ", log.LstdFlags)
	a, err := openApp(ctx, cfg, *resetCorrupt, logger)
	if err != nil {
		fmt.Fprintf(stderr, "arcade: %v\n", err)
		return 1
	}
	defer a.Close()
	a.stdin, a.stdout, a.stderr = stdin, stdout, stderr

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "games":
		return a.cmdGames()
	case "launch", "play":
		return a.cmdLaunch(ctx, rest)
	case "stats":
		return a.cmdStats(rest)
	case "history":
		return a.cmdHistory(ctx, rest)
	case "serve":
		return a.cmdServe(ctx)
	default:
		fmt.Fprintf(stderr, "arcade: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
}

// app holds the wired components for one invocation.
type app struct {
	cfg       config.Config
	logger    *log.Logger
	store     *scorestore.Store
	ledger    *history.SQLiteDB
	publisher *publisher.StreamPublisher
	runner    *runner.Runner
	arcade    *arcade.Orchestrator

	stdin          io.Reader
	stdout, stderr io.Writer
}

func openApp(ctx context.Context, cfg config.Config, resetCorrupt bool, logger *log.Logger) (*app, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, err
	}
	cfg.AdoptLegacyScores(logger)

	store, err := openStore(cfg.ScoresFile, resetCorrupt, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store}

	if !cfg.HistoryDisabled {
		ledger, err := history.Open(cfg.HistoryDB)
		if err != nil {
			// The ledger is a convenience; playing goes on without it.
			logger.Printf("session history disabled: %v", err)
		} else {
			a.ledger = ledger
		}
	}

	if cfg.RedisURL != "" {
		pub, err := publisher.Dial(ctx, cfg.RedisURL)
		if err != nil {
			logger.Printf("session events disabled: %v", err)
		} else {
			a.publisher = pub
		}
	}

	a.runner = runner.New(cfg.SessionTimeout)
	a.runner.Logger = log.New(logger.Writer(), "[RUNNER] ", log.LstdFlags)

	catalog := arcade.DefaultCatalog(arcade.CatalogConfig{
		GamesDir:     cfg.GamesDir,
		Python:       cfg.Python,
		TicTacToe:    cfg.TicTacToe,
		CountersFile: cfg.CountersFile,
	})

	opts := []arcade.Option{arcade.WithLogger(logger)}
	if a.ledger != nil {
		opts = append(opts, arcade.WithLedger(a.ledger))
	}
	if a.publisher != nil {
		opts = append(opts, arcade.WithPublisher(a.publisher))
	}
	a.arcade = arcade.New(store, a.runner, catalog, opts...)
	return a, nil
}

// openStore loads the statistics file. A corrupt file stops the arcade
// unless resetCorrupt is set, in which case it is moved aside first.
func openStore(path string, resetCorrupt bool, logger *log.Logger) (*scorestore.Store, error) {
	store, err := scorestore.Open(path)
	var corrupt *scorestore.CorruptStoreError
	if !errors.As(err, &corrupt) {
		return store, err
	}
	if !resetCorrupt {
		return nil, fmt.Errorf("%w (rerun with -reset-corrupt to move it aside and start over)", err)
	}
	moved, err := scorestore.MoveAside(path, time.Now())
	if err != nil {
		return nil, err
	}
	logger.Printf("corrupt statistics file moved to %s", moved)
	return scorestore.Open(path)
}

func (a *app) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Printf("close history: %v", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Printf("close publisher: %v", err)
		}
	}
}

// sessions returns the ledger as an api.SessionLister, or nil when disabled.
func (a *app) sessions() api.SessionLister {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}
