package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MJE43/game-arcade/internal/api"
	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/history"
	"github.com/MJE43/game-arcade/internal/runner"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

func (a *app) cmdGames() int {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tALIASES\tDESCRIPTION")
	for _, g := range a.arcade.Catalog().List() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, g.Name, strings.Join(g.Aliases, ","), g.Description)
	}
	tw.Flush()
	return 0
}

// cmdLaunch plays one session. Everything after "--" is run instead of the
// catalog command, with the score recorded under the given game id.
func (a *app) cmdLaunch(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "arcade: launch needs a game id")
		return 2
	}
	gameID := args[0]
	a.runner.Stdin = a.stdin
	a.runner.Display = a.stderr

	var (
		status arcade.Status
		err    error
	)
	if len(args) > 2 && args[1] == "--" {
		cmd := runner.Command{Path: args[2], Args: args[3:], Interactive: true}
		status, err = a.arcade.LaunchCommand(ctx, gameID, cmd)
	} else {
		status, err = a.arcade.LaunchAndRecord(ctx, gameID)
	}
	if errors.Is(err, arcade.ErrUnknownGame) {
		fmt.Fprintf(a.stderr, "arcade: unknown game %q; try one of: %s\n", gameID, strings.Join(a.arcade.Catalog().IDs(), ", "))
		return 2
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "arcade: %v\n", err)
		return 1
	}

	fmt.Fprintln(a.stdout, status.Message)
	if status.Stats != nil {
		printStats(a.stdout, status.Session.GameID, *status.Stats)
	}
	if status.Kind == arcade.StatusFailure {
		return 1
	}
	return 0
}

// cmdStats prints every catalog game, played or not, then any other game the
// statistics file knows about.
func (a *app) cmdStats(args []string) int {
	if len(args) > 0 {
		ref := strings.Join(args, " ")
		id := ref
		if spec, ok := a.arcade.Catalog().Get(ref); ok {
			id = spec.ID
		}
		printStats(a.stdout, id, a.arcade.StatsFor(ref))
		return 0
	}

	all := a.arcade.Stats()
	seen := make(map[string]bool)
	first := true
	show := func(id string) {
		if !first {
			fmt.Fprintln(a.stdout)
		}
		first = false
		seen[id] = true
		printStats(a.stdout, id, all[id])
	}
	for _, g := range a.arcade.Catalog().List() {
		show(g.ID)
	}
	var extra []string
	for id := range all {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	for _, id := range extra {
		show(id)
	}
	return 0
}

func printStats(w io.Writer, gameID string, s scorestore.GameStatistics) {
	fmt.Fprintf(w, "%s\n", gameID)
	if s.Empty() {
		fmt.Fprintln(w, "  no data")
		return
	}
	fmt.Fprintf(w, "  Total plays:  %d\n", s.TotalPlays)
	fmt.Fprintf(w, "  Average:      %s\n", s.AverageDisplay())
	fmt.Fprintf(w, "  High score:   %d\n", s.HighScore)
	fmt.Fprintf(w, "  Last played:  %s\n", s.LastPlayedDisplay())
}

func (a *app) cmdHistory(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	n := fs.Int("n", 20, "number of sessions")
	game := fs.String("game", "", "only this game")
	failed := fs.Bool("failed", false, "only failed launches")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if a.ledger == nil {
		fmt.Fprintln(a.stderr, "arcade: session history is disabled")
		return 1
	}

	q := history.Query{Page: 1, PerPage: *n, GameID: *game}
	if spec, ok := a.arcade.Catalog().Get(*game); ok {
		q.GameID = spec.ID
	}
	if *failed {
		q.Outcome = history.OutcomeFailed
	}
	page, err := a.ledger.List(ctx, q)
	if err != nil {
		fmt.Fprintf(a.stderr, "arcade: %v\n", err)
		return 1
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tGAME\tOUTCOME\tSCORE\tDURATION\tDETAIL")
	for _, e := range page.Entries {
		score := fmt.Sprint(e.Score)
		detail := e.FailureDetail
		if e.Outcome == history.OutcomeFailed {
			score = "-"
		} else if e.ScoreFallback {
			detail = "no numeric score"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(scorestore.LastPlayedLayout), e.GameID, e.Outcome, score,
			e.Duration.Round(time.Second), detail)
	}
	tw.Flush()
	if page.TotalCount > len(page.Entries) {
		fmt.Fprintf(a.stdout, "(%d of %d sessions)\n", len(page.Entries), page.TotalCount)
	}
	return 0
}

func (a *app) cmdServe(ctx context.Context) int {
	srv := api.NewServer(a.arcade, a.sessions(),
		api.WithAddr(a.cfg.HTTPAddr),
		api.WithCORSOrigins(a.cfg.CORSOrigins),
	)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(a.stderr, "arcade: %v\n", err)
		return 1
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Printf("shutdown: %v", err)
		return 1
	}
	a.logger.Printf("server stopped")
	return 0
}
