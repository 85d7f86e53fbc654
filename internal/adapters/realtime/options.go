package realtime

import "github.com/focusup/backend/pkg/logger"

// HubOption applies a configuration option to the Hub.
type HubOption func(*Hub)

// WithSubscriberBuffer sets the per-subscriber channel depth.
func WithSubscriberBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.buffer = size
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
