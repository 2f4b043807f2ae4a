package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

// streamMaxLen caps each stream; trimming is approximate.
const streamMaxLen = 10000

// StreamKey is the stream a game's completed sessions are published to.
func StreamKey(gameID string) string {
	return fmt.Sprintf("sessions.completed.%s", gameID)
}

// SessionEvent is the JSON payload in the stream entry's data field.
type SessionEvent struct {
	SessionID     string    `json:"session_id"`
	GameID        string    `json:"game_id"`
	GameName      string    `json:"game_name"`
	Score         int       `json:"score"`
	ScoreFallback bool      `json:"score_fallback"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	TotalPlays    int       `json:"total_plays"`
	AverageScore  float64   `json:"average_score"`
	HighScore     int       `json:"high_score"`
}

func newSessionEvent(s arcade.Session, stats scorestore.GameStatistics) SessionEvent {
	return SessionEvent{
		SessionID:     s.ID,
		GameID:        s.GameID,
		GameName:      s.GameName,
		Score:         s.Score,
		ScoreFallback: s.ScoreFallback,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
		TotalPlays:    stats.TotalPlays,
		AverageScore:  stats.AverageScore,
		HighScore:     stats.HighScore,
	}
}

// streamClient is the part of *redis.Client the publisher needs.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamPublisher publishes completed sessions to Redis streams
type StreamPublisher struct {
	client streamClient
	closer func() error
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client, closer: client.Close}
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url string) (*StreamPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("publisher: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("publisher: ping redis: %w", err)
	}
	return NewStreamPublisher(client), nil
}

// PublishSession publishes a recorded session to the game's stream
func (p *StreamPublisher) PublishSession(ctx context.Context, s arcade.Session, stats scorestore.GameStatistics) error {
	data, err := json.Marshal(newSessionEvent(s, stats))
	if err != nil {
		return fmt.Errorf("publisher: marshaling session event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(s.GameID),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":    string(data),
			"game_id": s.GameID,
			"score":   strconv.Itoa(s.Score),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publisher: xadd %s: %w", StreamKey(s.GameID), err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *StreamPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
