package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/pkg/metrics"
)

const defaultMetricsUpdateInterval = 10 * time.Second

// MemoryStore keeps the score log and users in process memory. It is
// the default store when no database URL is configured, and the one
// the tests run against.
type MemoryStore struct {
	mu     sync.RWMutex
	scores []model.ScoreRecord
	byID   map[string]int
	users  map[string]model.User

	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	stopOnce              sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore and starts its
// background metrics updater.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]int),
		users:                 make(map[string]model.User),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.metricsLoop()

	return s
}

func (s *MemoryStore) metricsLoop() {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.RLock()
			scores := len(s.scores)
			users := len(s.users)
			s.mu.RUnlock()
			metrics.UpdateTotalScores(scores)
			metrics.UpdateTotalUsers(users)
		}
	}
}

// Append adds a record to the log.
func (s *MemoryStore) Append(_ context.Context, record model.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[record.ID] = len(s.scores)
	s.scores = append(s.scores, record)
	return nil
}

// Get returns a record by id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.ScoreRecord{}, ErrScoreNotFound
	}
	return s.scores[idx], nil
}

// ByUser returns a user's records, newest first.
func (s *MemoryStore) ByUser(_ context.Context, userID string, game model.Game) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScoreRecord
	for i := len(s.scores) - 1; i >= 0; i-- {
		r := s.scores[i]
		if r.UserID != userID {
			continue
		}
		if game != "" && r.Game != game {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ByGame returns all records for a game in insertion order.
func (s *MemoryStore) ByGame(_ context.Context, game model.Game) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScoreRecord
	for _, r := range s.scores {
		if r.Game == game {
			out = append(out, r)
		}
	}
	return out, nil
}

// List returns every record in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]model.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ScoreRecord, len(s.scores))
	copy(out, s.scores)
	return out, nil
}

// Suspicious returns flagged records newest first with the flagged total.
func (s *MemoryStore) Suspicious(_ context.Context, limit, offset int) ([]model.ScoreRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var flagged []model.ScoreRecord
	for i := len(s.scores) - 1; i >= 0; i-- {
		if s.scores[i].IsSuspicious {
			flagged = append(flagged, s.scores[i])
		}
	}

	total := len(flagged)
	if offset >= total {
		return nil, total, nil
	}
	flagged = flagged[offset:]
	if limit > 0 && len(flagged) > limit {
		flagged = flagged[:limit]
	}
	return flagged, total, nil
}

// SetSuspicious overrides the flag and returns the updated record.
func (s *MemoryStore) SetSuspicious(_ context.Context, id string, flag bool) (model.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return model.ScoreRecord{}, ErrScoreNotFound
	}
	s.scores[idx].IsSuspicious = flag
	return s.scores[idx], nil
}

// CountScores returns the number of records in the log.
func (s *MemoryStore) CountScores(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores), nil
}

// CreateUser persists a new user, enforcing email uniqueness.
func (s *MemoryStore) CreateUser(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return model.User{}, ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return user, nil
}

// GetUser returns a user by id.
func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateStats replaces a user's stats projection.
func (s *MemoryStore) UpdateStats(_ context.Context, id string, stats model.UserStats) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	user.Stats = stats
	s.users[id] = user
	return user, nil
}

// CountUsers returns the number of registered users.
func (s *MemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
