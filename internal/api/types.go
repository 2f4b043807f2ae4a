package api

import (
	"time"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

// APIError represents a structured error response with context
type APIError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e APIError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation = "validation_error"

	// Game-related errors
	ErrTypeGameNotFound    = "game_not_found"
	ErrTypeSessionInFlight = "session_in_flight"
	ErrTypeInteractiveGame = "interactive_game"
	ErrTypeSessionNotFound = "session_not_found"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeSessionInFlight, ErrTypeInteractiveGame, ErrTypeSessionNotFound:
		return CategoryGame
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains build version information
type VersionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
}

// GameInfo is one catalog entry as exposed over HTTP. The launch command
// stays server-side.
type GameInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Interactive bool     `json:"interactive"`
}

func newGameInfo(spec arcade.GameSpec) GameInfo {
	return GameInfo{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		Aliases:     spec.Aliases,
		Interactive: spec.Command.Interactive,
	}
}

// GamesResponse represents the games metadata response
type GamesResponse struct {
	Games   []GameInfo `json:"games"`
	Version string     `json:"version"`
}

// GameStatsView is one game's statistics plus display helpers.
type GameStatsView struct {
	GameID string `json:"game_id"`
	scorestore.GameStatistics
	Played         bool   `json:"played"`
	AverageDisplay string `json:"average_display"`
}

func newGameStatsView(gameID string, stats scorestore.GameStatistics) GameStatsView {
	if stats.Scores == nil {
		stats.Scores = []int{}
	}
	return GameStatsView{
		GameID:         gameID,
		GameStatistics: stats,
		Played:         !stats.Empty(),
		AverageDisplay: stats.AverageDisplay(),
	}
}

// StatsResponse lists every game that has statistics.
type StatsResponse struct {
	Games []GameStatsView `json:"games"`
}

// LaunchResponse reports a finished session.
type LaunchResponse struct {
	Status        arcade.StatusKind `json:"status"`
	Message       string            `json:"message"`
	Session       arcade.Session    `json:"session"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Stats         *GameStatsView    `json:"stats,omitempty"`
	Warning       string            `json:"warning,omitempty"`
	DurationMs    int64             `json:"duration_ms"`
}

func newLaunchResponse(status arcade.Status) LaunchResponse {
	resp := LaunchResponse{
		Status:     status.Kind,
		Message:    status.Message,
		Session:    status.Session,
		DurationMs: status.Session.Duration().Milliseconds(),
	}
	if f := status.Session.Failure; f != nil {
		resp.FailureReason = string(f.Reason)
	}
	if status.Stats != nil {
		view := newGameStatsView(status.Session.GameID, *status.Stats)
		resp.Stats = &view
	}
	if status.Err != nil {
		resp.Warning = status.Err.Error()
	}
	return resp
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a health check response
type HealthCheckResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit,omitempty"`
	BuildTime string                 `json:"build_time,omitempty"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
