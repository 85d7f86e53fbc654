// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// EventsHandler exposes the realtime SSE subscriptions.
type EventsHandler struct {
	streamer Streamer
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(streamer Streamer) *EventsHandler {
	return &EventsHandler{streamer: streamer}
}

// HandleDashboardEvents handles GET /api/events/dashboard requests. The
// connection stays open and streams ranking-changed events until the
// client disconnects.
func (h *EventsHandler) HandleDashboardEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.streamer.ServeDashboard(w, r)
}

// HandleUserEvents handles GET /api/events/user/{id} requests,
// streaming stats-updated events for one user.
func (h *EventsHandler) HandleUserEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimPrefix(r.URL.Path, "/api/events/user/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	h.streamer.ServeUser(w, r, userID)
}
