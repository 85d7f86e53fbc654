package service

import (
	"context"
	"time"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/internal/domain/ranking"
	"github.com/focusup/backend/internal/domain/stats"
	"github.com/focusup/backend/pkg/metrics"
)

// RecentScore is a score record joined with the player's public
// profile for dashboard listings.
type RecentScore struct {
	model.ScoreRecord
	User model.PublicProfile `json:"user"`
}

// DashboardStats is the admin dashboard snapshot.
type DashboardStats struct {
	TotalUsers      int                   `json:"totalUsers"`
	TotalScores     int                   `json:"totalScores"`
	SuspiciousCount int                   `json:"suspiciousCount"`
	Games           []stats.GameBreakdown `json:"games"`
	RecentScores    []RecentScore         `json:"recentScores"`
	TopPlayers      []RankedPlayer        `json:"topPlayers"`
}

// DashboardStats assembles the admin snapshot: totals, per-game
// breakdown, the most recent clean attempts, and the top standings
// across all games.
func (s *Service) DashboardStats(ctx context.Context) (DashboardStats, error) {
	if !s.isStarted() {
		return DashboardStats{}, ErrNotStarted
	}

	start := time.Now()
	records, err := s.store.List(ctx)
	if err != nil {
		metrics.RecordStoreError()
		return DashboardStats{}, err
	}
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))

	totalUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		metrics.RecordStoreError()
		return DashboardStats{}, err
	}

	out := DashboardStats{
		TotalUsers:  totalUsers,
		TotalScores: len(records),
		Games:       stats.BreakdownByGame(records),
	}
	for _, r := range records {
		if r.IsSuspicious {
			out.SuspiciousCount++
		}
	}

	out.TopPlayers = s.joinProfiles(ctx, ranking.Compute(records, s.topPlayers))

	// Most recent clean attempts, newest first, with the player joined.
	out.RecentScores = make([]RecentScore, 0, s.recentScores)
	for i := len(records) - 1; i >= 0 && len(out.RecentScores) < s.recentScores; i-- {
		if records[i].IsSuspicious {
			continue
		}
		rs := RecentScore{ScoreRecord: records[i]}
		if user, err := s.store.GetUser(ctx, records[i].UserID); err == nil {
			rs.User = user.Public()
		}
		out.RecentScores = append(out.RecentScores, rs)
	}

	return out, nil
}

// Paging describes one page of a list response.
type Paging struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// SuspiciousPage is one page of flagged attempts plus paging totals.
type SuspiciousPage struct {
	Records    []model.ScoreRecord `json:"records"`
	Pagination Paging              `json:"pagination"`
}

// SuspiciousScores pages through flagged attempts, newest first.
// limit <= 0 applies the configured default and page < 1 reads the
// first page. The store offset is derived from the effective limit, so
// the default page size advances through pages the same way an explicit
// one does.
func (s *Service) SuspiciousScores(ctx context.Context, limit, page int) (SuspiciousPage, error) {
	if !s.isStarted() {
		return SuspiciousPage{}, ErrNotStarted
	}
	if limit <= 0 {
		limit = s.suspiciousLimit
	}
	if page < 1 {
		page = 1
	}

	records, total, err := s.store.Suspicious(ctx, limit, (page-1)*limit)
	if err != nil {
		metrics.RecordStoreError()
		return SuspiciousPage{}, err
	}

	return SuspiciousPage{
		Records: records,
		Pagination: Paging{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// SetSuspicious overrides a record's flag and nudges dashboard
// subscribers, since the ranking for that game may have changed.
func (s *Service) SetSuspicious(ctx context.Context, scoreID string, flag bool) (model.ScoreRecord, error) {
	if !s.isStarted() {
		return model.ScoreRecord{}, ErrNotStarted
	}

	record, err := s.store.SetSuspicious(ctx, scoreID, flag)
	if err != nil {
		return model.ScoreRecord{}, err
	}
	metrics.RecordModerationToggle()

	n := model.Notification{
		Game:   record.Game,
		UserID: record.UserID,
		At:     time.Now().UTC(),
	}
	if user, err := s.store.GetUser(ctx, record.UserID); err == nil {
		n.Stats = user.Stats
	}
	s.publish(ctx, n)

	return record, nil
}
