// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"

	notifyqueue "github.com/focusup/backend/internal/adapters/mq/queue"
	workerpool "github.com/focusup/backend/internal/adapters/mq/worker"
	repository "github.com/focusup/backend/internal/adapters/repository"
	"github.com/focusup/backend/internal/domain/anomaly"
	"github.com/focusup/backend/internal/pkg/keyedlock"
	"github.com/focusup/backend/pkg/logger"
	"github.com/focusup/backend/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize       = 10000
	defaultWorkerCount     = 4
	defaultRankingLimit    = 10
	defaultMaxRankingLimit = 100
	defaultHistoryLimit    = 50
	defaultSuspiciousLimit = 50
	defaultProgressDays    = 30
	defaultRecentScores    = 10
	defaultTopPlayers      = 5
)

// Service implements the API dependencies for the score pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	classifier  anomaly.Classifier
	notifyQueue notifyqueue.Queue
	workerPool  *workerpool.Pool
	notifier    workerpool.Notifier
	locks       *keyedlock.KeyedLock

	// Configuration
	databaseURL     string
	queueSize       int
	workerCount     int
	rankingLimit    int
	maxRankingLimit int
	historyLimit    int
	suspiciousLimit int
	progressDays    int
	recentScores    int
	topPlayers      int

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDatabaseURL points the service at Postgres. Empty keeps the
// in-memory store.
func WithDatabaseURL(url string) Option {
	return func(s *Service) {
		s.databaseURL = url
	}
}

// WithStore injects a pre-built store, mainly for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNotifier sets the notification sink for the dispatch workers.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClassifier overrides the anomaly classifier.
func WithClassifier(c anomaly.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithQueueSize sets the maximum size of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRankingLimits sets the default and maximum ranking page sizes.
func WithRankingLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.rankingLimit = def
		}
		if max > 0 {
			s.maxRankingLimit = max
		}
	}
}

// WithHistoryLimit sets the default history page size.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithSuspiciousLimit sets the default moderation page size.
func WithSuspiciousLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.suspiciousLimit = limit
		}
	}
}

// WithProgressDays sets the default progress window.
func WithProgressDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.progressDays = days
		}
	}
}

// WithDashboardLimits sets the recent-scores and top-players sizes.
func WithDashboardLimits(recent, top int) Option {
	return func(s *Service) {
		if recent > 0 {
			s.recentScores = recent
		}
		if top > 0 {
			s.topPlayers = top
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		classifier:      anomaly.NewThresholdClassifier(),
		locks:           keyedlock.New(),
		queueSize:       defaultQueueSize,
		workerCount:     defaultWorkerCount,
		rankingLimit:    defaultRankingLimit,
		maxRankingLimit: defaultMaxRankingLimit,
		historyLimit:    defaultHistoryLimit,
		suspiciousLimit: defaultSuspiciousLimit,
		progressDays:    defaultProgressDays,
		recentScores:    defaultRecentScores,
		topPlayers:      defaultTopPlayers,
		stopCh:          make(chan struct{}),
		logger:          nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// noopNotifier discards notifications when no hub is wired.
type noopNotifier struct{}

func (noopNotifier) BroadcastRankingChanged(context.Context, workerpool.Notification) error {
	return nil
}

func (noopNotifier) NotifyUserStats(context.Context, workerpool.Notification) error {
	return nil
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting score service...")

	if s.store == nil {
		if s.databaseURL != "" {
			store, err := repository.NewPostgresStore(ctx, s.databaseURL)
			if err != nil {
				return err
			}
			s.store = store
			s.logger.Info(ctx, "using postgres store")
		} else {
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	s.notifyQueue = notifyqueue.NewInMemoryQueue(
		notifyqueue.WithCapacity(s.queueSize),
		notifyqueue.WithBufferSize(s.queueSize),
	)

	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}

	s.workerPool = workerpool.NewPool(s.workerCount, s.notifyQueue, s.notifier)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "score service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping score service...")

	// Shutdown closes the queue first, letting workers drain it.
	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	if s.store != nil {
		_ = s.store.Close(ctx)
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "score service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}

	if s.started {
		queueLen := s.notifyQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)

		if totalScores, err := s.store.CountScores(ctx); err == nil {
			stats["totalScores"] = totalScores
			metrics.UpdateTotalScores(totalScores)
		}
		if totalUsers, err := s.store.CountUsers(ctx); err == nil {
			stats["totalUsers"] = totalUsers
			metrics.UpdateTotalUsers(totalUsers)
		}
	}

	return stats
}
