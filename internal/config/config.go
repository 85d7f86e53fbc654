// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL points at Postgres. Empty selects the in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// NotifyQueueSize bounds the in-memory notification queue.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkerCount sets the number of notification dispatch workers.
	NotifyWorkerCount int `koanf:"notify_worker_count"`

	// SubscriberBufferSize sets the per-subscriber event channel depth.
	SubscriberBufferSize int `koanf:"subscriber_buffer_size"`

	// MaxRankingLimit caps GET /api/scores/ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// DefaultRankingLimit applies when no limit query parameter is given.
	DefaultRankingLimit int `koanf:"default_ranking_limit"`

	// DefaultHistoryLimit applies to GET /api/scores/user/{id}.
	DefaultHistoryLimit int `koanf:"default_history_limit"`

	// DefaultSuspiciousLimit applies to the moderation listing.
	DefaultSuspiciousLimit int `koanf:"default_suspicious_limit"`

	// DefaultProgressDays bounds the per-day progress window.
	DefaultProgressDays int `koanf:"default_progress_days"`

	// RecentScoresLimit sets how many recent attempts the dashboard shows.
	RecentScoresLimit int `koanf:"recent_scores_limit"`

	// TopPlayersLimit sets how many standings the dashboard shows per game.
	TopPlayersLimit int `koanf:"top_players_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		DatabaseURL:            "",
		NotifyQueueSize:        10_000,
		NotifyWorkerCount:      runtime.NumCPU() * 2,
		SubscriberBufferSize:   16,
		MaxRankingLimit:        100,
		DefaultRankingLimit:    10,
		DefaultHistoryLimit:    50,
		DefaultSuspiciousLimit: 50,
		DefaultProgressDays:    30,
		RecentScoresLimit:      10,
		TopPlayersLimit:        5,
	}
}
