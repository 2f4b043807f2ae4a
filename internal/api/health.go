package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/game-arcade/internal/history"
)

// handleHealthCheck reports catalog and ledger health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"catalog": s.checkCatalogHealth(),
		"ledger":  s.checkLedgerHealth(r.Context()),
	}

	overall := HealthStatusHealthy
	for _, c := range checks {
		switch c.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	resp := HealthCheckResponse{
		Status:    overall,
		Timestamp: formatTime(time.Now()),
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    checks,
		System:    getSystemInfo(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	status := http.StatusOK
	if overall == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) checkCatalogHealth() HealthCheck {
	start := time.Now()
	n := len(s.launcher.Catalog().List())
	check := HealthCheck{
		Status:      HealthStatusHealthy,
		Message:     fmt.Sprintf("%d games available", n),
		LastChecked: formatTime(start),
		Duration:    time.Since(start).String(),
	}
	if n == 0 {
		check.Status = HealthStatusDegraded
		check.Message = "no games registered"
	}
	return check
}

func (s *Server) checkLedgerHealth(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{LastChecked: formatTime(start)}
	if s.sessions == nil {
		check.Status = HealthStatusHealthy
		check.Message = "session history disabled"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := s.sessions.List(ctx, history.Query{PerPage: 1}); err != nil {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("ledger query failed: %v", err)
	} else {
		check.Status = HealthStatusHealthy
		check.Message = "ledger reachable"
	}
	check.Duration = time.Since(start).String()
	return check
}

func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		MemorySys:     m.Sys,
	}
}
