package simulate

import (
	"fmt"

	"github.com/focusup/backend/internal/domain/ranking"
)

// verifyStandings checks the ordering invariants of a returned
// leaderboard: each user appears once, and standings are sorted by
// score descending with time ascending on ties.
func verifyStandings(standings []ranking.Standing) error {
	seen := make(map[string]struct{}, len(standings))
	for i, s := range standings {
		if s.UserID == "" {
			return fmt.Errorf("standing %d has no userId", i)
		}
		if _, dup := seen[s.UserID]; dup {
			return fmt.Errorf("user %s appears more than once", s.UserID)
		}
		seen[s.UserID] = struct{}{}

		if i == 0 {
			continue
		}
		prev := standings[i-1]
		if s.Score > prev.Score {
			return fmt.Errorf("standing %d (score %.2f) outranks its predecessor (score %.2f)", i, s.Score, prev.Score)
		}
		if s.Score == prev.Score && s.TimeMs < prev.TimeMs {
			return fmt.Errorf("standing %d breaks the tie ordering on time (%.2f < %.2f)", i, s.TimeMs, prev.TimeMs)
		}
	}
	return nil
}
