// Package stats derives user statistics and dashboard aggregates from
// the append-only score log.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/focusup/backend/internal/domain/model"
)

// Round2 rounds to two decimal places, the precision persisted for
// accuracy averages.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recompute derives the full UserStats projection from every record a
// user owns. The scan is deliberately not incremental: a stale or
// lost projection heals on the user's next ingestion.
func Recompute(records []model.ScoreRecord, now time.Time) model.UserStats {
	s := model.UserStats{
		TotalGamesPlayed: len(records),
		LastPlayed:       &now,
	}
	if len(records) == 0 {
		s.LastPlayed = nil
		return s
	}

	var accuracySum float64
	for _, rec := range records {
		if rec.Score > s.BestOverallScore {
			s.BestOverallScore = rec.Score
		}
		accuracySum += rec.Accuracy
	}
	s.AverageAccuracy = Round2(accuracySum / float64(len(records)))
	return s
}

// Aggregate summarizes a set of attempts for history and progress
// views.
type Aggregate struct {
	TotalAttempts   int     `json:"totalAttempts"`
	BestScore       float64 `json:"bestScore"`
	AverageScore    float64 `json:"averageScore"`
	BestTime        float64 `json:"bestTime"`
	AverageTime     float64 `json:"averageTime"`
	AverageAccuracy float64 `json:"averageAccuracy"`
}

// Summarize computes an Aggregate over records. Empty input yields the
// zero aggregate.
func Summarize(records []model.ScoreRecord) Aggregate {
	var agg Aggregate
	if len(records) == 0 {
		return agg
	}

	agg.TotalAttempts = len(records)
	agg.BestTime = records[0].TimeMs
	var scoreSum, timeSum, accuracySum float64
	for _, rec := range records {
		if rec.Score > agg.BestScore {
			agg.BestScore = rec.Score
		}
		if rec.TimeMs < agg.BestTime {
			agg.BestTime = rec.TimeMs
		}
		scoreSum += rec.Score
		timeSum += rec.TimeMs
		accuracySum += rec.Accuracy
	}
	n := float64(len(records))
	agg.AverageScore = Round2(scoreSum / n)
	agg.AverageTime = Round2(timeSum / n)
	agg.AverageAccuracy = Round2(accuracySum / n)
	return agg
}

// GamesPlayed lists the distinct games in records, sorted for stable
// output.
func GamesPlayed(records []model.ScoreRecord) []model.Game {
	seen := make(map[model.Game]struct{})
	for _, rec := range records {
		seen[rec.Game] = struct{}{}
	}
	games := make([]model.Game, 0, len(seen))
	for g := range seen {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i] < games[j] })
	return games
}

// GameBreakdown is one game's slice of the dashboard metrics.
type GameBreakdown struct {
	Game          model.Game `json:"game"`
	Attempts      int        `json:"attempts"`
	AvgScore      float64    `json:"avgScore"`
	AvgTimeMs     float64    `json:"avgTimeMs"`
	UniquePlayers int        `json:"uniquePlayers"`
}

// BreakdownByGame groups non-suspicious records per game, ordered by
// attempt count descending (game name ascending on ties).
func BreakdownByGame(records []model.ScoreRecord) []GameBreakdown {
	type acc struct {
		attempts int
		scoreSum float64
		timeSum  float64
		players  map[string]struct{}
	}
	byGame := make(map[model.Game]*acc)
	for _, rec := range records {
		if rec.IsSuspicious {
			continue
		}
		a, ok := byGame[rec.Game]
		if !ok {
			a = &acc{players: make(map[string]struct{})}
			byGame[rec.Game] = a
		}
		a.attempts++
		a.scoreSum += rec.Score
		a.timeSum += rec.TimeMs
		a.players[rec.UserID] = struct{}{}
	}

	out := make([]GameBreakdown, 0, len(byGame))
	for game, a := range byGame {
		out = append(out, GameBreakdown{
			Game:          game,
			Attempts:      a.attempts,
			AvgScore:      Round2(a.scoreSum / float64(a.attempts)),
			AvgTimeMs:     Round2(a.timeSum / float64(a.attempts)),
			UniquePlayers: len(a.players),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts > out[j].Attempts
		}
		return out[i].Game < out[j].Game
	})
	return out
}

// GameDayTotals is a single game's contribution to one progress day.
type GameDayTotals struct {
	Score    float64 `json:"score"`
	Attempts int     `json:"attempts"`
}

// ProgressDay is one calendar day of a user's progress series.
type ProgressDay struct {
	Date        string                       `json:"date"`
	TotalScore  float64                      `json:"totalScore"`
	Attempts    int                          `json:"attempts"`
	AvgScore    float64                      `json:"avgScore"`
	AvgAccuracy float64                      `json:"avgAccuracy"`
	Games       map[model.Game]GameDayTotals `json:"games"`
}

// ProgressByDay buckets records by UTC calendar date, oldest first.
// Per-day average score is rounded to the nearest integer and average
// accuracy to two decimals, matching the dashboard's charting needs.
func ProgressByDay(records []model.ScoreRecord) []ProgressDay {
	byDate := make(map[string]*ProgressDay)
	var accuracySums = make(map[string]float64)
	for _, rec := range records {
		date := rec.CreatedAt.UTC().Format("2006-01-02")
		day, ok := byDate[date]
		if !ok {
			day = &ProgressDay{Date: date, Games: make(map[model.Game]GameDayTotals)}
			byDate[date] = day
		}
		day.TotalScore += rec.Score
		day.Attempts++
		accuracySums[date] += rec.Accuracy

		g := day.Games[rec.Game]
		g.Score += rec.Score
		g.Attempts++
		day.Games[rec.Game] = g
	}

	out := make([]ProgressDay, 0, len(byDate))
	for date, day := range byDate {
		day.AvgScore = math.Round(day.TotalScore / float64(day.Attempts))
		day.AvgAccuracy = Round2(accuracySums[date] / float64(day.Attempts))
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
