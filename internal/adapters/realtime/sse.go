package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/focusup/backend/pkg/logger"
)

const keepaliveInterval = 15 * time.Second

// ServeDashboard streams ranking-changed events to one client.
func (h *Hub) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	events, cancel := h.SubscribeDashboard(r.Context())
	defer cancel()
	h.stream(w, r, events)
}

// ServeUser streams one user's stats events to one client.
func (h *Hub) ServeUser(w http.ResponseWriter, r *http.Request, userID string) {
	events, cancel := h.SubscribeUser(r.Context(), userID)
	defer cancel()
	h.stream(w, r, events)
}

// stream writes SSE frames until the client disconnects or the hub
// closes the subscription.
func (h *Hub) stream(w http.ResponseWriter, r *http.Request, events <-chan Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx
	w.WriteHeader(http.StatusOK)

	// Initial keepalive so the client sees the stream is open.
	fmt.Fprint(w, ":\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(e.Data)
			if err != nil {
				h.logger.Error(ctx, "marshal stream event", logger.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, payload)
			flusher.Flush()
		}
	}
}
