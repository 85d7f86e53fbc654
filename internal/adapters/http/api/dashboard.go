// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	service "github.com/focusup/backend/internal/app"
	"github.com/focusup/backend/internal/domain/model"
)

// DashboardHandler handles admin dashboard and moderation requests.
type DashboardHandler struct {
	deps Dependencies
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Dependencies) *DashboardHandler {
	return &DashboardHandler{deps: deps}
}

// moderateRequest mirrors the OpenAPI schema for
// PATCH /api/dashboard/suspicious/{id}.
type moderateRequest struct {
	IsSuspicious *bool `json:"isSuspicious"`
}

// HandleDashboardStats handles GET /api/dashboard/stats requests.
func (h *DashboardHandler) HandleDashboardStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.dashboard_stats"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snapshot, err := h.deps.DashboardStats(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// HandleSuspiciousScores handles GET /api/dashboard/suspicious?limit=&page= requests.
func (h *DashboardHandler) HandleSuspiciousScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.suspicious_scores"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit, page := 0, 1
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		page = n
	}

	list, err := h.deps.SuspiciousScores(r.Context(), limit, page)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleSetSuspicious handles PATCH /api/dashboard/suspicious/{id} requests.
// PUT is accepted as an alias for clients that cannot issue PATCH.
func (h *DashboardHandler) HandleSetSuspicious(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_suspicious"
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	scoreID := strings.TrimPrefix(r.URL.Path, "/api/dashboard/suspicious/")
	if scoreID == "" || strings.Contains(scoreID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.IsSuspicious == nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	record, err := h.deps.SetSuspicious(r.Context(), scoreID, *req.IsSuspicious)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleUserProgress handles GET /api/dashboard/user/{id}/progress?game=&days= requests.
func (h *DashboardHandler) HandleUserProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_progress"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/dashboard/user/")
	userID, rest, _ := strings.Cut(path, "/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if rest != "progress" {
		http.NotFound(w, r)
		return
	}

	var days int
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		days = n
	}

	progress, err := h.deps.UserProgress(r.Context(), userID, model.Game(r.URL.Query().Get("game")), days)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		UserID string `json:"userId"`
		service.Progress
	}{UserID: userID, Progress: progress})
}
