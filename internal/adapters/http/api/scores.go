// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	service "github.com/focusup/backend/internal/app"
	"github.com/focusup/backend/internal/domain/model"
)

// ScoresHandler handles score submission and history requests.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// submitRequest mirrors the OpenAPI schema for POST /api/scores.
// Score and TimeMs are pointers so an absent field is distinguishable
// from an explicit zero.
type submitRequest struct {
	UserID     string         `json:"userId"`
	Game       string         `json:"game"`
	Score      *float64       `json:"score"`
	TimeMs     *float64       `json:"timeMs"`
	Accuracy   float64        `json:"accuracy"`
	Difficulty string         `json:"difficulty"`
	Metadata   model.Metadata `json:"metadata"`
}

func (s submitRequest) validate() error {
	switch {
	case strings.TrimSpace(s.UserID) == "":
		return errors.New("missing userId")
	case strings.TrimSpace(s.Game) == "":
		return errors.New("missing game")
	case s.Score == nil:
		return errors.New("missing score")
	case s.TimeMs == nil:
		return errors.New("missing timeMs")
	case *s.Score < 0:
		return errors.New("score must be non-negative")
	case *s.TimeMs < 0:
		return errors.New("timeMs must be non-negative")
	case s.Accuracy < 0 || s.Accuracy > 100:
		return errors.New("accuracy must be between 0 and 100")
	}
	return nil
}

// submitResponse carries the stored record and the refreshed user
// projection back to the client.
type submitResponse struct {
	Score model.ScoreRecord `json:"score"`
	User  model.User        `json:"user"`
}

// HandleSubmitScore handles POST /api/scores requests.
func (h *ScoresHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Fall back to request context for metadata the client did not send.
	if req.Metadata.DeviceInfo == "" {
		req.Metadata.DeviceInfo = r.UserAgent()
	}
	if req.Metadata.IPAddress == "" {
		req.Metadata.IPAddress = r.RemoteAddr
	}

	record, user, err := h.deps.SubmitScore(r.Context(), service.ScoreSubmission{
		UserID:     req.UserID,
		Game:       model.Game(req.Game),
		Score:      *req.Score,
		TimeMs:     *req.TimeMs,
		Accuracy:   req.Accuracy,
		Difficulty: model.Difficulty(req.Difficulty),
		Metadata:   req.Metadata,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{Score: record, User: user})
}

// HandleUserHistory handles GET /api/scores/user/{id}?game=&limit= requests.
func (h *ScoresHandler) HandleUserHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/api/scores/user/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	history, err := h.deps.UserHistory(r.Context(), userID, model.Game(r.URL.Query().Get("game")), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
