// Package tictactoe is the reference mini-game: a two-player 3x3 grid game
// whose process reports a single score line on exit.
package tictactoe

import "fmt"

// Mark is the content of a cell, and doubles as the player identifier.
type Mark int

const (
	Empty Mark = iota
	PlayerOne
	PlayerTwo
)

func (m Mark) String() string {
	switch m {
	case PlayerOne:
		return "X"
	case PlayerTwo:
		return "O"
	default:
		return " "
	}
}

func (m Mark) other() Mark {
	if m == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// State is the match state. Won and Drawn are terminal.
type State int

const (
	InProgress State = iota
	Won
	Drawn
)

func (s State) String() string {
	switch s {
	case Won:
		return "won"
	case Drawn:
		return "drawn"
	default:
		return "in_progress"
	}
}

// Cells is the number of cells on the board.
const Cells = 9

var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// ResultRecorder persists the outcome of a finished match. winner is Empty
// for a draw.
type ResultRecorder interface {
	RecordResult(winner Mark) error
}

// Game holds one match. It is not safe for concurrent use; input events are
// expected from a single loop.
type Game struct {
	board    [Cells]Mark
	current  Mark
	state    State
	winner   Mark
	recorder ResultRecorder
}

// New starts a match. recorder may be nil.
func New(recorder ResultRecorder) *Game {
	g := &Game{recorder: recorder}
	g.Reset()
	return g
}

// Reset clears the board for a new match. Persisted counters are untouched.
func (g *Game) Reset() {
	g.board = [Cells]Mark{}
	g.current = PlayerOne
	g.state = InProgress
	g.winner = Empty
}

// PlaceMark puts the current player's mark on cell (0-8). Moves on an
// occupied or out-of-range cell, or after the match ended, are ignored and
// report false. The error is only set when a finishing move could not be
// persisted; the move itself still counts.
func (g *Game) PlaceMark(cell int) (bool, error) {
	if g.state != InProgress || cell < 0 || cell >= Cells || g.board[cell] != Empty {
		return false, nil
	}

	mark := g.current
	g.board[cell] = mark

	switch {
	case g.hasLine(mark):
		g.state = Won
		g.winner = mark
	case g.full():
		g.state = Drawn
	default:
		g.current = mark.other()
		return true, nil
	}

	if g.recorder != nil {
		if err := g.recorder.RecordResult(g.winner); err != nil {
			return true, fmt.Errorf("tictactoe: record result: %w", err)
		}
	}
	return true, nil
}

func (g *Game) hasLine(m Mark) bool {
	for _, line := range winningLines {
		if g.board[line[0]] == m && g.board[line[1]] == m && g.board[line[2]] == m {
			return true
		}
	}
	return false
}

func (g *Game) full() bool {
	for _, c := range g.board {
		if c == Empty {
			return false
		}
	}
	return true
}

// Board returns a copy of the cells, row by row.
func (g *Game) Board() [Cells]Mark { return g.board }

// CurrentPlayer is the player to move, or the one who made the last move
// once the match is over.
func (g *Game) CurrentPlayer() Mark { return g.current }

func (g *Game) State() State { return g.state }

// Winner is Empty unless State is Won.
func (g *Game) Winner() Mark { return g.winner }

// Score is the value reported to the launcher: 1 for a decided match, 0 for a
// draw or a match left unfinished.
func (g *Game) Score() int {
	if g.state == Won {
		return 1
	}
	return 0
}
