package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/focusup/backend/internal/domain/model"
)

// Postgres connection defaults.
const (
	pgConnectTimeout   = 10 * time.Second
	pgMaxConnLifetime  = time.Hour
	pgMaxConnIdleTime  = 30 * time.Minute
	pgHealthCheckEvery = 30 * time.Second

	uniqueViolationCode = "23505"
)

const scoreColumns = `id, user_id, game, score, time_ms, accuracy, difficulty, is_suspicious, device_info, ip_address, created_at`

const userColumns = `id, name, email, total_games_played, best_overall_score, average_accuracy, last_played, created_at`

// PostgresStore persists the score log and users in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database, verifies the connection,
// and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.ConnConfig.ConnectTimeout = pgConnectTimeout
	poolConfig.MaxConnLifetime = pgMaxConnLifetime
	poolConfig.MaxConnIdleTime = pgMaxConnIdleTime
	poolConfig.HealthCheckPeriod = pgHealthCheckEvery

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			total_games_played INTEGER NOT NULL DEFAULT 0,
			best_overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			average_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_played TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS scores (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			game TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			time_ms DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION NOT NULL,
			difficulty TEXT NOT NULL DEFAULT '',
			is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
			device_info TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scores_user ON scores(user_id);
		CREATE INDEX IF NOT EXISTS idx_scores_game ON scores(game);
		CREATE INDEX IF NOT EXISTS idx_scores_suspicious ON scores(is_suspicious) WHERE is_suspicious;
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func scanScore(row pgx.Row) (model.ScoreRecord, error) {
	var r model.ScoreRecord
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Game,
		&r.Score,
		&r.TimeMs,
		&r.Accuracy,
		&r.Difficulty,
		&r.IsSuspicious,
		&r.Metadata.DeviceInfo,
		&r.Metadata.IPAddress,
		&r.CreatedAt,
	)
	return r, err
}

func (s *PostgresStore) queryScores(ctx context.Context, query string, args ...any) ([]model.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []model.ScoreRecord
	for rows.Next() {
		r, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}
	return out, nil
}

// Append adds a record to the log.
func (s *PostgresStore) Append(ctx context.Context, record model.ScoreRecord) error {
	const query = `
		INSERT INTO scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Game,
		record.Score,
		record.TimeMs,
		record.Accuracy,
		record.Difficulty,
		record.IsSuspicious,
		record.Metadata.DeviceInfo,
		record.Metadata.IPAddress,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// Get returns a record by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.ScoreRecord, error) {
	const query = `SELECT ` + scoreColumns + ` FROM scores WHERE id = $1`

	r, err := scanScore(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScoreRecord{}, ErrScoreNotFound
		}
		return model.ScoreRecord{}, fmt.Errorf("get score: %w", err)
	}
	return r, nil
}

// ByUser returns a user's records, newest first.
func (s *PostgresStore) ByUser(ctx context.Context, userID string, game model.Game) ([]model.ScoreRecord, error) {
	if game != "" {
		const query = `
			SELECT ` + scoreColumns + ` FROM scores
			WHERE user_id = $1 AND game = $2
			ORDER BY created_at DESC
		`
		return s.queryScores(ctx, query, userID, game)
	}
	const query = `
		SELECT ` + scoreColumns + ` FROM scores
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return s.queryScores(ctx, query, userID)
}

// ByGame returns all records for a game.
func (s *PostgresStore) ByGame(ctx context.Context, game model.Game) ([]model.ScoreRecord, error) {
	const query = `SELECT ` + scoreColumns + ` FROM scores WHERE game = $1 ORDER BY created_at`
	return s.queryScores(ctx, query, game)
}

// List returns every record in the log.
func (s *PostgresStore) List(ctx context.Context) ([]model.ScoreRecord, error) {
	const query = `SELECT ` + scoreColumns + ` FROM scores ORDER BY created_at`
	return s.queryScores(ctx, query)
}

// Suspicious returns flagged records newest first with the flagged total.
func (s *PostgresStore) Suspicious(ctx context.Context, limit, offset int) ([]model.ScoreRecord, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores WHERE is_suspicious`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suspicious: %w", err)
	}

	const query = `
		SELECT ` + scoreColumns + ` FROM scores
		WHERE is_suspicious
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	records, err := s.queryScores(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SetSuspicious overrides the flag and returns the updated record.
func (s *PostgresStore) SetSuspicious(ctx context.Context, id string, flag bool) (model.ScoreRecord, error) {
	const query = `
		UPDATE scores SET is_suspicious = $2
		WHERE id = $1
		RETURNING ` + scoreColumns + `
	`
	r, err := scanScore(s.pool.QueryRow(ctx, query, id, flag))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScoreRecord{}, ErrScoreNotFound
		}
		return model.ScoreRecord{}, fmt.Errorf("set suspicious: %w", err)
	}
	return r, nil
}

// CountScores returns the number of records in the log.
func (s *PostgresStore) CountScores(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count scores: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Stats.TotalGamesPlayed,
		&u.Stats.BestOverallScore,
		&u.Stats.AverageAccuracy,
		&u.Stats.LastPlayed,
		&u.CreatedAt,
	)
	return u, err
}

// CreateUser persists a new user, enforcing email uniqueness.
func (s *PostgresStore) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns + `
	`
	u, err := scanUser(s.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Stats.TotalGamesPlayed,
		user.Stats.BestOverallScore,
		user.Stats.AverageAccuracy,
		user.Stats.LastPlayed,
		user.CreatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpdateStats replaces a user's stats projection.
func (s *PostgresStore) UpdateStats(ctx context.Context, id string, stats model.UserStats) (model.User, error) {
	const query = `
		UPDATE users
		SET total_games_played = $2, best_overall_score = $3, average_accuracy = $4, last_played = $5
		WHERE id = $1
		RETURNING ` + userColumns + `
	`
	u, err := scanUser(s.pool.QueryRow(ctx, query,
		id,
		stats.TotalGamesPlayed,
		stats.BestOverallScore,
		stats.AverageAccuracy,
		stats.LastPlayed,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update stats: %w", err)
	}
	return u, nil
}

// CountUsers returns the number of registered users.
func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
