package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/internal/domain/ranking"
	"github.com/focusup/backend/internal/domain/stats"
	"github.com/focusup/backend/pkg/logger"
	"github.com/focusup/backend/pkg/metrics"
)

// ScoreSubmission carries one attempt into the ingestion pipeline.
type ScoreSubmission struct {
	UserID     string
	Game       model.Game
	Score      float64
	TimeMs     float64
	Accuracy   float64
	Difficulty model.Difficulty
	Metadata   model.Metadata
}

// History is a user's attempt log plus lifetime aggregates.
type History struct {
	Records   []model.ScoreRecord `json:"records"`
	Total     int                 `json:"total"`
	Aggregate stats.Aggregate     `json:"aggregate"`
	Games     []model.Game        `json:"games"`
}

// SubmitScore runs the full ingestion pipeline for one attempt:
// classify, append, recompute the projection under the user's lock,
// and hand a notification to the fan-out queue. It returns the stored
// record together with the fresh user.
func (s *Service) SubmitScore(ctx context.Context, sub ScoreSubmission) (model.ScoreRecord, model.User, error) {
	if !s.isStarted() {
		return model.ScoreRecord{}, model.User{}, ErrNotStarted
	}
	if !sub.Game.Valid() {
		return model.ScoreRecord{}, model.User{}, ErrUnknownGame
	}
	if sub.Difficulty == "" {
		sub.Difficulty = model.DifficultyMedium
	}
	if !sub.Difficulty.Valid() {
		return model.ScoreRecord{}, model.User{}, ErrInvalidSubmission
	}
	if sub.Score < 0 || sub.TimeMs < 0 || sub.Accuracy < 0 || sub.Accuracy > 100 {
		return model.ScoreRecord{}, model.User{}, ErrInvalidSubmission
	}

	if _, err := s.store.GetUser(ctx, sub.UserID); err != nil {
		return model.ScoreRecord{}, model.User{}, err
	}

	record := model.ScoreRecord{
		ID:           uuid.NewString(),
		UserID:       sub.UserID,
		Game:         sub.Game,
		Score:        sub.Score,
		TimeMs:       sub.TimeMs,
		Accuracy:     sub.Accuracy,
		Difficulty:   sub.Difficulty,
		IsSuspicious: s.classifier.Classify(sub.Game, sub.Score, sub.TimeMs),
		Metadata:     sub.Metadata,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.Append(ctx, record); err != nil {
		metrics.RecordStoreError()
		return model.ScoreRecord{}, model.User{}, err
	}

	metrics.RecordScoreSubmitted(string(record.Game))
	if record.IsSuspicious {
		metrics.RecordSuspiciousFlagged()
		s.logger.Warn(ctx, "submission flagged suspicious",
			logger.String("scoreID", record.ID),
			logger.String("userID", record.UserID),
			logger.String("game", string(record.Game)),
			logger.Float64("score", record.Score),
			logger.Float64("timeMs", record.TimeMs),
		)
	}

	// The projection recompute is single-writer per user: concurrent
	// submissions for the same user serialize here, so the last write
	// always reflects every appended record.
	var fresh model.User
	err := s.locks.WithLock(sub.UserID, func() error {
		start := time.Now()

		records, err := s.store.ByUser(ctx, sub.UserID, "")
		if err != nil {
			return err
		}

		projection := stats.Recompute(records, record.CreatedAt)
		fresh, err = s.store.UpdateStats(ctx, sub.UserID, projection)
		if err != nil {
			return err
		}

		metrics.RecordProjectionRecompute()
		metrics.RecordProjectionLatency(float64(time.Since(start).Milliseconds()))
		return nil
	})
	if err != nil {
		metrics.RecordStoreError()
		return model.ScoreRecord{}, model.User{}, err
	}

	s.publish(ctx, model.Notification{
		Game:   record.Game,
		UserID: record.UserID,
		Stats:  fresh.Stats,
		At:     record.CreatedAt,
	})

	return record, fresh, nil
}

// publish enqueues a notification without ever failing the caller.
func (s *Service) publish(ctx context.Context, n model.Notification) {
	if s.notifyQueue.Enqueue(ctx, n) {
		metrics.RecordNotificationPublished()
		return
	}
	metrics.RecordNotificationDropped()
	s.logger.Warn(ctx, "notification dropped",
		logger.String("userID", n.UserID),
		logger.String("game", string(n.Game)),
	)
}

// UserHistory returns a user's attempts, newest first, with lifetime
// aggregates computed over the full log. An empty game selects all
// games; limit <= 0 applies the configured default.
func (s *Service) UserHistory(ctx context.Context, userID string, game model.Game, limit int) (History, error) {
	if !s.isStarted() {
		return History{}, ErrNotStarted
	}
	if game != "" && !game.Valid() {
		return History{}, ErrUnknownGame
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return History{}, err
	}

	start := time.Now()
	records, err := s.store.ByUser(ctx, userID, game)
	if err != nil {
		metrics.RecordStoreError()
		return History{}, err
	}
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))

	h := History{
		Total:     len(records),
		Aggregate: stats.Summarize(records),
		Games:     stats.GamesPlayed(records),
	}

	if limit <= 0 {
		limit = s.historyLimit
	}
	if len(records) > limit {
		records = records[:limit]
	}
	h.Records = records

	return h, nil
}

// RankedPlayer is a leaderboard standing joined with the player's
// public profile.
type RankedPlayer struct {
	ranking.Standing
	User model.PublicProfile `json:"user"`
}

// joinProfiles attaches public profiles to standings. A standing whose
// user cannot be resolved keeps an empty profile rather than failing
// the whole read.
func (s *Service) joinProfiles(ctx context.Context, standings []ranking.Standing) []RankedPlayer {
	players := make([]RankedPlayer, len(standings))
	for i, st := range standings {
		players[i] = RankedPlayer{Standing: st}
		if user, err := s.store.GetUser(ctx, st.UserID); err == nil {
			players[i].User = user.Public()
		}
	}
	return players
}

// Ranking aggregates the best non-suspicious attempt per user for one
// game and joins each player's public profile. The second return value
// is the total number of eligible players before truncation. limit <= 0
// applies the default; anything above the maximum is clamped.
func (s *Service) Ranking(ctx context.Context, game model.Game, limit int) ([]RankedPlayer, int, error) {
	if !s.isStarted() {
		return nil, 0, ErrNotStarted
	}
	if !game.Valid() {
		return nil, 0, ErrUnknownGame
	}

	if limit <= 0 {
		limit = s.rankingLimit
	}
	if limit > s.maxRankingLimit {
		limit = s.maxRankingLimit
	}

	start := time.Now()
	records, err := s.store.ByGame(ctx, game)
	if err != nil {
		metrics.RecordStoreError()
		return nil, 0, err
	}

	standings := ranking.Compute(records, 0)
	totalPlayers := len(standings)
	if len(standings) > limit {
		standings = standings[:limit]
	}

	metrics.RecordRankingQuery()
	metrics.RecordRankingLatency(float64(time.Since(start).Milliseconds()))

	return s.joinProfiles(ctx, standings), totalPlayers, nil
}

// Progress is a user's day-bucketed series over the requested window,
// together with the persisted projection and their latest attempts.
type Progress struct {
	Days   []stats.ProgressDay `json:"days"`
	Stats  model.UserStats     `json:"stats"`
	Recent []model.ScoreRecord `json:"recentScores"`
}

const progressRecentLimit = 20

// UserProgress buckets a user's non-suspicious attempts by UTC day over
// the last days days. An empty game selects all games; days <= 0
// applies the configured default.
func (s *Service) UserProgress(ctx context.Context, userID string, game model.Game, days int) (Progress, error) {
	if !s.isStarted() {
		return Progress{}, ErrNotStarted
	}
	if game != "" && !game.Valid() {
		return Progress{}, ErrUnknownGame
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Progress{}, err
	}

	if days <= 0 {
		days = s.progressDays
	}

	records, err := s.store.ByUser(ctx, userID, game)
	if err != nil {
		metrics.RecordStoreError()
		return Progress{}, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	windowed := records[:0:0]
	for _, r := range records {
		if r.IsSuspicious || r.CreatedAt.Before(cutoff) {
			continue
		}
		windowed = append(windowed, r)
	}

	p := Progress{
		Days:  stats.ProgressByDay(windowed),
		Stats: user.Stats,
	}
	// windowed is newest first, same as the underlying history read.
	if len(windowed) > progressRecentLimit {
		p.Recent = windowed[:progressRecentLimit]
	} else {
		p.Recent = windowed
	}

	return p, nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
