// Package worker defines the dispatch workers that fan queued
// notifications out to realtime subscribers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/pkg/logger"
	"github.com/focusup/backend/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Notification abstracts what workers read off the queue.
type Notification = model.Notification

// Notifier receives dispatched notifications. The realtime hub
// implements this to push ranking and stats updates to subscribers.
type Notifier interface {
	// BroadcastRankingChanged tells dashboard subscribers that the
	// ranking for a game may have changed.
	BroadcastRankingChanged(ctx context.Context, n Notification) error

	// NotifyUserStats pushes a user's fresh stats to that user's
	// subscribers.
	NotifyUserStats(ctx context.Context, n Notification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notification
}

// Worker dispatches notifications using the provided Notifier.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will dispatch any remaining notifications before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for dispatching notifications.
type InMemoryWorker struct {
	queue    Queue
	notifier Notifier
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, notifier Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		notifier: notifier,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	notifChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-notifChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.dispatch(ctx, n); err != nil {
				w.logger.Error(ctx, "error dispatching notification", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// dispatch hands one notification to the hub. Delivery is best-effort:
// failures are logged and counted but never retried.
func (w *InMemoryWorker) dispatch(ctx context.Context, n Notification) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerProcessingLatency(float64(latency))
	}()

	if err := w.notifier.BroadcastRankingChanged(ctx, n); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "broadcast_error")
		metrics.RecordErrorByType("broadcast_error", "low")
		w.logger.Error(ctx, "ranking broadcast failed",
			logger.String("game", string(n.Game)),
			logger.Error(err),
		)
		return fmt.Errorf("ranking broadcast failed: %w", err)
	}

	if err := w.notifier.NotifyUserStats(ctx, n); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "user_notify_error")
		metrics.RecordErrorByType("user_notify_error", "low")
		w.logger.Error(ctx, "user stats notify failed",
			logger.String("userID", n.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("user stats notify failed: %w", err)
	}

	metrics.RecordNotificationDelivered()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	notifier Notifier

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, notifier Notifier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		notifier: notifier,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			notifier,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new notifications
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
