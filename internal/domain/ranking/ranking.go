// Package ranking turns the append-only score log into deterministic,
// tie-broken leaderboards.
package ranking

import (
	"sort"
	"time"

	"github.com/focusup/backend/internal/domain/model"
)

// Standing is one player's best eligible attempt plus their attempt
// count among the supplied records.
type Standing struct {
	UserID        string    `json:"userId"`
	Score         float64   `json:"score"`
	TimeMs        float64   `json:"timeMs"`
	Accuracy      float64   `json:"accuracy"`
	TotalAttempts int       `json:"totalAttempts"`
	CreatedAt     time.Time `json:"createdAt"`
}

// beats reports whether attempt a outranks attempt b: higher score
// wins, and a lower elapsed time wins on tied score.
func beats(aScore, aTimeMs, bScore, bTimeMs float64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aTimeMs < bTimeMs
}

// Compute aggregates records into an ordered leaderboard. Suspicious
// records are excluded entirely: they neither rank nor count toward
// TotalAttempts. Each player contributes their single best attempt,
// players are ordered by the same score-desc/time-asc comparator, and
// the result is truncated to limit (limit <= 0 keeps everyone).
//
// No state is kept between calls; every invocation re-scans the
// supplied records, so repeat calls over unchanged data are identical.
func Compute(records []model.ScoreRecord, limit int) []Standing {
	best := make(map[string]*Standing)
	for _, rec := range records {
		if rec.IsSuspicious {
			continue
		}
		cur, ok := best[rec.UserID]
		if !ok {
			best[rec.UserID] = &Standing{
				UserID:        rec.UserID,
				Score:         rec.Score,
				TimeMs:        rec.TimeMs,
				Accuracy:      rec.Accuracy,
				TotalAttempts: 1,
				CreatedAt:     rec.CreatedAt,
			}
			continue
		}
		cur.TotalAttempts++
		if beats(rec.Score, rec.TimeMs, cur.Score, cur.TimeMs) {
			cur.Score = rec.Score
			cur.TimeMs = rec.TimeMs
			cur.Accuracy = rec.Accuracy
			cur.CreatedAt = rec.CreatedAt
		}
	}

	standings := make([]Standing, 0, len(best))
	for _, s := range best {
		standings = append(standings, *s)
	}

	// Final userID key: ties on both score and time stay deterministic
	// across calls, which keeps repeat aggregations idempotent.
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeMs != b.TimeMs {
			return a.TimeMs < b.TimeMs
		}
		return a.UserID < b.UserID
	})

	if limit > 0 && len(standings) > limit {
		standings = standings[:limit]
	}
	return standings
}
