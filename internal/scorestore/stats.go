package scorestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LastPlayedLayout is the on-disk format of GameStatistics.LastPlayed.
const LastPlayedLayout = "2006-01-02 15:04:05"

// Timestamp is a second-resolution local time serialized as LastPlayedLayout.
// The zero value encodes as an empty string.
type Timestamp struct {
	time.Time
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + t.Format(LastPlayedLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("last_played: expected string, got %s", s)
	}
	s = strings.TrimSpace(s[1 : len(s)-1])
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(LastPlayedLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("last_played: %w", err)
	}
	t.Time = parsed
	return nil
}

// GameStatistics is the aggregated record kept for one game identifier.
// Every derived field is recomputed from Scores on each append.
type GameStatistics struct {
	Scores       []int     `json:"scores"`
	TotalPlays   int       `json:"total_plays"`
	AverageScore float64   `json:"average_score"`
	HighScore    int       `json:"high_score"`
	LastPlayed   Timestamp `json:"last_played"`
}

// Empty reports whether no session has been recorded yet, in which case the
// derived fields carry no meaning.
func (g GameStatistics) Empty() bool {
	return len(g.Scores) == 0
}

// AverageDisplay formats the average with one decimal, or "no data".
func (g GameStatistics) AverageDisplay() string {
	if g.Empty() {
		return "no data"
	}
	return decimal.NewFromFloat(g.AverageScore).StringFixed(1)
}

// LastPlayedDisplay formats LastPlayed, or "no data".
func (g GameStatistics) LastPlayedDisplay() string {
	if g.Empty() || g.LastPlayed.IsZero() {
		return "no data"
	}
	return g.LastPlayed.Format(LastPlayedLayout)
}

// append records one session score and re-derives the aggregates.
func (g *GameStatistics) append(score int, at time.Time) {
	g.Scores = append(g.Scores, score)
	g.recompute()
	g.LastPlayed = Timestamp{at.Truncate(time.Second)}
}

func (g *GameStatistics) recompute() {
	if len(g.Scores) == 0 {
		g.TotalPlays = 0
		g.AverageScore = 0
		g.HighScore = 0
		return
	}

	sum := decimal.Zero
	high := g.Scores[0]
	for _, s := range g.Scores {
		sum = sum.Add(decimal.NewFromInt(int64(s)))
		if s > high {
			high = s
		}
	}

	g.TotalPlays = len(g.Scores)
	g.HighScore = high
	g.AverageScore, _ = sum.Div(decimal.NewFromInt(int64(len(g.Scores)))).Float64()
}

// validate checks the invariants a loaded record must satisfy.
func (g GameStatistics) validate() error {
	if g.TotalPlays != len(g.Scores) {
		return fmt.Errorf("total_plays %d does not match %d scores", g.TotalPlays, len(g.Scores))
	}
	if len(g.Scores) == 0 {
		return nil
	}
	high := g.Scores[0]
	for _, s := range g.Scores[1:] {
		if s > high {
			high = s
		}
	}
	if g.HighScore != high {
		return fmt.Errorf("high_score %d does not match max score %d", g.HighScore, high)
	}
	return nil
}

func (g GameStatistics) clone() GameStatistics {
	out := g
	out.Scores = append([]int(nil), g.Scores...)
	return out
}
