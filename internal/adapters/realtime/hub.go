// Package realtime fans score pipeline notifications out to connected
// dashboard and per-user stream subscribers.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/pkg/logger"
	"github.com/focusup/backend/pkg/metrics"
)

const defaultSubscriberBuffer = 16

// Event names pushed over the stream.
const (
	EventRankingChanged = "ranking-changed"
	EventStatsUpdated   = "stats-updated"
)

// Event is a single message pushed to subscribers.
type Event struct {
	Name string
	Data any
}

// RankingChangedPayload is the dashboard-facing event body.
type RankingChangedPayload struct {
	Game model.Game `json:"game"`
	At   time.Time  `json:"at"`
}

// StatsUpdatedPayload is the per-user event body.
type StatsUpdatedPayload struct {
	UserID string          `json:"userId"`
	Stats  model.UserStats `json:"stats"`
	At     time.Time       `json:"at"`
}

type subscriber struct {
	ch chan Event
}

// Hub tracks subscribers and delivers events to them without blocking
// the dispatch path. A slow subscriber loses events rather than
// stalling everyone else.
type Hub struct {
	mu        sync.RWMutex
	dashboard map[*subscriber]struct{}
	users     map[string]map[*subscriber]struct{}
	userCount int
	buffer    int
	closed    bool

	logger logger.Logger
}

// NewHub creates a Hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		dashboard: make(map[*subscriber]struct{}),
		users:     make(map[string]map[*subscriber]struct{}),
		buffer:    defaultSubscriberBuffer,
		logger:    logger.Get().Named("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubscribeDashboard registers a dashboard subscriber. The returned
// cancel function must be called when the subscriber goes away.
func (h *Hub) SubscribeDashboard(_ context.Context) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.dashboard[sub] = struct{}{}
	count := len(h.dashboard)
	h.mu.Unlock()

	metrics.UpdateDashboardSubscribers(count)

	return sub.ch, func() {
		h.mu.Lock()
		if _, ok := h.dashboard[sub]; ok {
			delete(h.dashboard, sub)
			close(sub.ch)
		}
		count := len(h.dashboard)
		h.mu.Unlock()
		metrics.UpdateDashboardSubscribers(count)
	}
}

// SubscribeUser registers a subscriber for one user's updates.
func (h *Hub) SubscribeUser(_ context.Context, userID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.users[userID] == nil {
		h.users[userID] = make(map[*subscriber]struct{})
	}
	h.users[userID][sub] = struct{}{}
	h.userCount++
	count := h.userCount
	h.mu.Unlock()

	metrics.UpdateUserSubscribers(count)

	return sub.ch, func() {
		h.mu.Lock()
		if subs, ok := h.users[userID]; ok {
			if _, ok := subs[sub]; ok {
				delete(subs, sub)
				close(sub.ch)
				h.userCount--
			}
			if len(subs) == 0 {
				delete(h.users, userID)
			}
		}
		count := h.userCount
		h.mu.Unlock()
		metrics.UpdateUserSubscribers(count)
	}
}

// send delivers an event without blocking. Full buffers drop the event.
func (h *Hub) send(sub *subscriber, e Event) {
	select {
	case sub.ch <- e:
		metrics.RecordRealtimeEventSent()
	default:
		metrics.RecordRealtimeEventSkipped()
	}
}

// BroadcastRankingChanged tells every dashboard subscriber that a
// game's ranking may have changed.
func (h *Hub) BroadcastRankingChanged(_ context.Context, n model.Notification) error {
	e := Event{
		Name: EventRankingChanged,
		Data: RankingChangedPayload{Game: n.Game, At: n.At},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for sub := range h.dashboard {
		h.send(sub, e)
	}
	return nil
}

// NotifyUserStats pushes a user's fresh stats to that user's subscribers.
func (h *Hub) NotifyUserStats(_ context.Context, n model.Notification) error {
	e := Event{
		Name: EventStatsUpdated,
		Data: StatsUpdatedPayload{UserID: n.UserID, Stats: n.Stats, At: n.At},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for sub := range h.users[n.UserID] {
		h.send(sub, e)
	}
	return nil
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.dashboard {
		close(sub.ch)
	}
	h.dashboard = make(map[*subscriber]struct{})
	for _, subs := range h.users {
		for sub := range subs {
			close(sub.ch)
		}
	}
	h.users = make(map[string]map[*subscriber]struct{})
	h.userCount = 0

	metrics.UpdateDashboardSubscribers(0)
	metrics.UpdateUserSubscribers(0)
}
