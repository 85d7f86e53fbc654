// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/focusup/backend/internal/adapters/repository"
	service "github.com/focusup/backend/internal/app"
	"github.com/focusup/backend/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Write path.
	SubmitScore(ctx context.Context, sub service.ScoreSubmission) (model.ScoreRecord, model.User, error)
	CreateUser(ctx context.Context, name, email string) (model.User, error)

	// Read path.
	GetUser(ctx context.Context, id string) (model.User, error)
	UserHistory(ctx context.Context, userID string, game model.Game, limit int) (service.History, error)
	UserProgress(ctx context.Context, userID string, game model.Game, days int) (service.Progress, error)
	Ranking(ctx context.Context, game model.Game, limit int) ([]service.RankedPlayer, int, error)

	// Moderation.
	DashboardStats(ctx context.Context) (service.DashboardStats, error)
	SuspiciousScores(ctx context.Context, limit, page int) (service.SuspiciousPage, error)
	SetSuspicious(ctx context.Context, scoreID string, flag bool) (model.ScoreRecord, error)
}

// Streamer serves long-lived SSE subscriptions.
type Streamer interface {
	ServeDashboard(w http.ResponseWriter, r *http.Request)
	ServeUser(w http.ResponseWriter, r *http.Request, userID string)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	scoresHandler    *ScoresHandler
	rankingHandler   *RankingHandler
	usersHandler     *UsersHandler
	dashboardHandler *DashboardHandler
	eventsHandler    *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, streamer Streamer) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		scoresHandler:    NewScoresHandler(deps),
		rankingHandler:   NewRankingHandler(deps),
		usersHandler:     NewUsersHandler(deps),
		dashboardHandler: NewDashboardHandler(deps),
		eventsHandler:    NewEventsHandler(streamer),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/scores", MetricsMiddleware(s.scoresHandler.HandleSubmitScore, "scores"))
	mux.HandleFunc("/api/scores/user/", MetricsMiddleware(s.scoresHandler.HandleUserHistory, "scores_user"))
	mux.HandleFunc("/api/scores/ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/api/users", MetricsMiddleware(s.usersHandler.HandleCreateUser, "users"))
	mux.HandleFunc("/api/users/", MetricsMiddleware(s.usersHandler.HandleGetUser, "users_get"))
	mux.HandleFunc("/api/dashboard/stats", MetricsMiddleware(s.dashboardHandler.HandleDashboardStats, "dashboard_stats"))
	mux.HandleFunc("/api/dashboard/suspicious", MetricsMiddleware(s.dashboardHandler.HandleSuspiciousScores, "dashboard_suspicious"))
	mux.HandleFunc("/api/dashboard/suspicious/", MetricsMiddleware(s.dashboardHandler.HandleSetSuspicious, "dashboard_moderate"))
	mux.HandleFunc("/api/dashboard/user/", MetricsMiddleware(s.dashboardHandler.HandleUserProgress, "dashboard_progress"))
	mux.HandleFunc("/api/events/dashboard", s.eventsHandler.HandleDashboardEvents)
	mux.HandleFunc("/api/events/user/", s.eventsHandler.HandleUserEvents)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream sentinel errors to HTTP status
// codes so every handler maps failures the same way.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownGame):
		writeError(w, http.StatusBadRequest, "unknown_game", Wrap(op, err))
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrScoreNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
