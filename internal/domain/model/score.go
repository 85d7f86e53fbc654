// Package model contains domain models passed between layers.
package model

import "time"

// Game identifies one of the cognitive-training minigames.
type Game string

// Enumerated minigames. Submissions are rejected for anything else.
const (
	GameAttention     Game = "attention"
	GameReaction      Game = "reaction"
	GameMemory        Game = "memory"
	GameNumericMemory Game = "numeric-memory"
	GameVerbalMemory  Game = "verbal-memory"
)

// Games lists the enumerated minigames in a stable order.
func Games() []Game {
	return []Game{GameAttention, GameReaction, GameMemory, GameNumericMemory, GameVerbalMemory}
}

// Valid reports whether g is one of the enumerated minigames.
func (g Game) Valid() bool {
	switch g {
	case GameAttention, GameReaction, GameMemory, GameNumericMemory, GameVerbalMemory:
		return true
	default:
		return false
	}
}

// Difficulty is the self-reported difficulty of an attempt.
type Difficulty string

// Enumerated difficulties.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the enumerated difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Metadata captures opaque request context stored alongside a score.
type Metadata struct {
	DeviceInfo string `json:"deviceInfo"`
	IPAddress  string `json:"ipAddress"`
}

// ScoreRecord is one attempt at a minigame. Records are write-once:
// only IsSuspicious may change after creation, via explicit moderation.
type ScoreRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Game         Game       `json:"game"`
	Score        float64    `json:"score"`
	TimeMs       float64    `json:"timeMs"`
	Accuracy     float64    `json:"accuracy"`
	Difficulty   Difficulty `json:"difficulty"`
	IsSuspicious bool       `json:"isSuspicious"`
	Metadata     Metadata   `json:"metadata"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Notification is the fan-out payload queued after a successful
// ingestion. Both realtime signals of one ingestion travel together so
// they are always emitted after the underlying persistence completed.
type Notification struct {
	Game   Game
	UserID string
	Stats  UserStats
	At     time.Time
}
