// Package simulate drives a running service with synthetic players and
// verifies the rankings it serves back.
package simulate

import "time"

// Config controls a simulation run.
type Config struct {
	BaseURL     string
	NumUsers    int
	NumScores   int
	Workers     int
	Timeout     time.Duration
	RankingSize int
	Verbose     bool
}

// Stats accumulates counters across a simulation run.
type Stats struct {
	UsersCreated     int
	ScoresGenerated  int
	ScoresSubmitted  int
	ScoresSuccessful int
	ScoresFailed     int
	ScoresRejected   int
	RankingsFetched  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
