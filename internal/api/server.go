// Package api serves the arcade over a loopback HTTP API: the game catalog,
// statistics, launching a session and the recent-sessions ledger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/history"
	"github.com/MJE43/game-arcade/internal/scorestore"
)

// DefaultAddr is the loopback address the API binds to.
const DefaultAddr = "127.0.0.1:17890"

// Launcher is the orchestrator surface the API drives.
type Launcher interface {
	TryLaunch(ctx context.Context, gameID string) (arcade.Status, error)
	Stats() map[string]scorestore.GameStatistics
	StatsFor(gameID string) scorestore.GameStatistics
	Catalog() *arcade.Catalog
}

// SessionLister reads the session ledger.
type SessionLister interface {
	List(ctx context.Context, query history.Query) (*history.Page, error)
	Get(ctx context.Context, id string) (*history.Entry, error)
}

// readTimeout bounds the read-only routes.
const readTimeout = 30 * time.Second

// Server handles HTTP requests
type Server struct {
	launcher     Launcher
	sessions     SessionLister
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time
	addr         string
	corsOrigins  []string
	httpServer   *http.Server
	listener     net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option { return func(s *Server) { s.addr = addr } }

// WithCORSOrigins allows browser front-ends on these origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithLogger replaces the default [API] logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server. sessions may be nil when the ledger is
// disabled.
func NewServer(launcher Launcher, sessions SessionLister, opts ...Option) *Server {
	s := &Server{
		launcher:  launcher,
		sessions:  sessions,
		logger:    log.New(os.Stderr, "[API] ", log.LstdFlags|log.Lshortfile),
		startTime: time.Now(),
		addr:      DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandler = NewErrorHandler(s.logger)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Arcade-Version"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealthCheck)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.timeout(readTimeout))
			r.Get("/games", s.handleListGames)
			r.Get("/stats", s.handleStats)
			r.Get("/stats/{gameID}", s.handleGameStats)
			r.Get("/sessions", s.handleSessions)
			r.Get("/sessions/{sessionID}", s.handleSession)
		})
		// A session lasts as long as the player keeps playing.
		r.Post("/games/{gameID}/launch", s.handleLaunch)
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.corsOrigins) > 0 {
		return s.corsOrigins
	}
	return []string{"http://localhost:*", "http://127.0.0.1:*"}
}

// Start binds the listener and serves in a goroutine. It returns once the
// socket is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("serve: %v", err)
		}
	}()
	s.logger.Printf("listening on http://%s", ln.Addr())
	return nil
}

// Addr is the bound address once Start has returned, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Arcade-Version", Version)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

// timeout cancels the request context after d. A handler that gives up
// without writing gets a structured timeout error.
func (s *Server) timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && ww.Status() == 0 {
				s.errorHandler.Write(w, r, http.StatusGatewayTimeout,
					NewError(ErrTypeTimeout, "Request timed out").WithContext("timeout", d.String()))
			}
		})
	}
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Printf("%s %s %d %dms request_id=%s",
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
	})
}
