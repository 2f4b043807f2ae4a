package api

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/game-arcade/internal/arcade"
	"github.com/MJE43/game-arcade/internal/history"
)

// GET /api/v1/games
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	specs := s.launcher.Catalog().List()
	games := make([]GameInfo, 0, len(specs))
	for _, spec := range specs {
		games = append(games, newGameInfo(spec))
	}
	s.writeJSON(w, http.StatusOK, GamesResponse{Games: games, Version: Version})
}

// GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	all := s.launcher.Stats()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	views := make([]GameStatsView, 0, len(ids))
	for _, id := range ids {
		views = append(views, newGameStatsView(id, all[id]))
	}
	s.writeJSON(w, http.StatusOK, StatsResponse{Games: views})
}

// GET /api/v1/stats/{gameID}
//
// A game without statistics is not an error: it comes back with played=false.
func (s *Server) handleGameStats(w http.ResponseWriter, r *http.Request) {
	ref := gameIDParam(r)
	if ref == "" {
		s.errorHandler.HandleValidationError(w, r, "gameID", "game id is required")
		return
	}
	gameID := ref
	if spec, ok := s.launcher.Catalog().Get(ref); ok {
		gameID = spec.ID
	}
	s.writeJSON(w, http.StatusOK, newGameStatsView(gameID, s.launcher.StatsFor(ref)))
}

// POST /api/v1/games/{gameID}/launch
//
// Launch failures are session outcomes and come back as 200 with
// status "failure". Error responses are reserved for requests that never
// started a session.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	ref := gameIDParam(r)
	spec, ok := s.launcher.Catalog().Get(ref)
	if !ok {
		s.errorHandler.Write(w, r, http.StatusNotFound,
			NewError(ErrTypeGameNotFound, "Unknown game").WithContext("game_id", ref))
		return
	}
	if spec.Command.Interactive {
		s.errorHandler.Write(w, r, http.StatusUnprocessableEntity,
			NewError(ErrTypeInteractiveGame, "Game needs a terminal; launch it from the command line").
				WithContext("game_id", spec.ID))
		return
	}

	status, err := s.launcher.TryLaunch(r.Context(), spec.ID)
	switch {
	case errors.Is(err, arcade.ErrSessionInFlight):
		s.errorHandler.Write(w, r, http.StatusConflict,
			NewError(ErrTypeSessionInFlight, "Another game session is running").WithContext("game_id", spec.ID))
		return
	case errors.Is(err, arcade.ErrUnknownGame):
		s.errorHandler.Write(w, r, http.StatusNotFound,
			NewError(ErrTypeGameNotFound, "Unknown game").WithContext("game_id", ref))
		return
	case err != nil:
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, newLaunchResponse(status))
}

// GET /api/v1/sessions?page=&per_page=&game=&outcome=
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.errorHandler.Write(w, r, http.StatusServiceUnavailable,
			NewError(ErrTypeServiceUnavailable, "Session history is disabled"))
		return
	}

	q := history.Query{
		Page:    qInt(r, "page", 1),
		PerPage: qInt(r, "per_page", 20),
	}
	if game := r.URL.Query().Get("game"); game != "" {
		q.GameID = game
		if spec, ok := s.launcher.Catalog().Get(game); ok {
			q.GameID = spec.ID
		}
	}
	switch outcome := history.Outcome(r.URL.Query().Get("outcome")); outcome {
	case "", history.OutcomeRecorded, history.OutcomeFailed:
		q.Outcome = outcome
	default:
		s.errorHandler.HandleValidationError(w, r, "outcome", "outcome must be recorded or failed")
		return
	}

	page, err := s.sessions.List(r.Context(), q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// GET /api/v1/sessions/{sessionID}
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.errorHandler.Write(w, r, http.StatusServiceUnavailable,
			NewError(ErrTypeServiceUnavailable, "Session history is disabled"))
		return
	}
	id := chi.URLParam(r, "sessionID")
	entry, err := s.sessions.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		s.errorHandler.Write(w, r, http.StatusNotFound,
			NewError(ErrTypeSessionNotFound, "Unknown session").WithContext("session_id", id))
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

// GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

func gameIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "gameID")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func qInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
