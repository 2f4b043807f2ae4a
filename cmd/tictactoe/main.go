// Command tictactoe is a two-player terminal game. The board and prompts go
// to stderr; on exit the score of the last match is printed to stdout as a
// single integer line for the arcade launcher.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/MJE43/game-arcade/internal/tictactoe"
)

func main() {
	countersPath := flag.String("counters", tictactoe.DefaultCountersFile, "path of the win/draw counters file")
	zeroBased := flag.Bool("zero-based", false, "number cells 0-8 instead of 1-9")
	flag.Parse()

	logger := log.New(os.Stderr, "[TICTACTOE] ", log.LstdFlags)

	var recorder tictactoe.ResultRecorder
	counters, err := tictactoe.OpenCounters(*countersPath)
	if err != nil {
		logger.Printf("counters disabled: %v", err)
	} else {
		recorder = counters
	}

	game := tictactoe.New(recorder)
	s := session{game: game, out: os.Stderr, logger: logger, zeroBased: *zeroBased, counters: counters}
	s.run(os.Stdin)

	fmt.Fprintln(os.Stdout, s.score())
}

type session struct {
	game      *tictactoe.Game
	out       io.Writer
	logger    *log.Logger
	zeroBased bool
	counters  *tictactoe.CounterStore
	// lastScore is the score of the most recent match that had a move,
	// kept across resets.
	lastScore int
}

// score is the score of the last match played. A match reset before its
// first move does not count.
func (s *session) score() int {
	if s.moves() > 0 {
		return s.game.Score()
	}
	return s.lastScore
}

func (s *session) moves() int {
	n := 0
	for _, m := range s.game.Board() {
		if m != tictactoe.Empty {
			n++
		}
	}
	return n
}

func (s *session) run(in io.Reader) {
	s.render()
	scanner := bufio.NewScanner(in)
	for {
		s.prompt()
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return
		}
		input := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch input {
		case "":
			continue
		case "q", "quit", "exit":
			return
		case "r", "reset":
			s.lastScore = s.score()
			s.game.Reset()
			s.render()
			continue
		}

		cell, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(s.out, "unrecognised input %q\n", input)
			continue
		}
		if !s.zeroBased {
			cell--
		}
		placed, err := s.game.PlaceMark(cell)
		if err != nil {
			s.logger.Printf("%v", err)
		}
		if !placed {
			continue
		}
		s.render()
	}
}

func (s *session) prompt() {
	first, last := 1, 9
	if s.zeroBased {
		first, last = 0, 8
	}
	switch s.game.State() {
	case tictactoe.InProgress:
		fmt.Fprintf(s.out, "%s to move (%d-%d, r reset, q quit): ", s.game.CurrentPlayer(), first, last)
	default:
		fmt.Fprint(s.out, "r to play again, q to quit: ")
	}
}

func (s *session) render() {
	b := s.game.Board()
	fmt.Fprintln(s.out)
	for row := 0; row < 3; row++ {
		fmt.Fprintf(s.out, " %s | %s | %s\n", b[row*3], b[row*3+1], b[row*3+2])
		if row < 2 {
			fmt.Fprintln(s.out, "---+---+---")
		}
	}

	switch s.game.State() {
	case tictactoe.Won:
		fmt.Fprintf(s.out, "\n%s wins!\n", s.game.Winner())
	case tictactoe.Drawn:
		fmt.Fprintln(s.out, "\nDraw.")
	default:
		return
	}
	if s.counters != nil {
		c := s.counters.Counters()
		fmt.Fprintf(s.out, "X: %d  O: %d  Draws: %d\n", c.PlayerOneWins, c.PlayerTwoWins, c.Draws)
	}
}
