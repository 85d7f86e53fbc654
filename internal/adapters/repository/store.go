// Package repository defines the score and user stores and their errors.
package repository

import (
	"context"

	"github.com/focusup/backend/internal/domain/model"
)

// ScoreStore provides access to the append-only score log.
type ScoreStore interface {
	// Append adds a new score record to the log.
	Append(ctx context.Context, record model.ScoreRecord) error

	// Get returns a single record by id.
	// Returns ErrScoreNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.ScoreRecord, error)

	// ByUser returns a user's records, newest first. An empty game
	// selects all games.
	ByUser(ctx context.Context, userID string, game model.Game) ([]model.ScoreRecord, error)

	// ByGame returns all records for a game.
	ByGame(ctx context.Context, game model.Game) ([]model.ScoreRecord, error)

	// List returns every record in the log.
	List(ctx context.Context) ([]model.ScoreRecord, error)

	// Suspicious returns flagged records newest first, plus the total
	// number of flagged records for pagination.
	Suspicious(ctx context.Context, limit, offset int) ([]model.ScoreRecord, int, error)

	// SetSuspicious overrides the flag on a record and returns the
	// updated record. Returns ErrScoreNotFound if the id is unknown.
	SetSuspicious(ctx context.Context, id string, flag bool) (model.ScoreRecord, error)

	// CountScores returns the number of records in the log.
	CountScores(ctx context.Context) (int, error)
}

// UserStore provides access to user accounts and their stats projection.
type UserStore interface {
	// CreateUser persists a new user.
	// Returns ErrDuplicateEmail when the email is already registered.
	CreateUser(ctx context.Context, user model.User) (model.User, error)

	// GetUser returns a user by id.
	// Returns ErrUserNotFound if the id is unknown.
	GetUser(ctx context.Context, id string) (model.User, error)

	// UpdateStats replaces a user's stats projection and returns the
	// fresh user. Returns ErrUserNotFound if the id is unknown.
	UpdateStats(ctx context.Context, id string, stats model.UserStats) (model.User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}

// Store combines score and user persistence behind one handle.
type Store interface {
	ScoreStore
	UserStore

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
