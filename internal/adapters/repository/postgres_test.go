package repository_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/focusup/backend/internal/adapters/repository"
	"github.com/focusup/backend/internal/domain/model"
)

func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// setupPostgres starts a throwaway PostgreSQL container and returns a
// connected store. Skips the test when Docker is unavailable.
func setupPostgres(t *testing.T) (*repository.PostgresStore, func()) {
	t.Helper()
	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := repository.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		_ = store.Close(ctx)
		_ = pgContainer.Terminate(ctx)
	}
	return store, cleanup
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	user := model.User{ID: "u1", Name: "Alice", Email: "alice@example.com", CreatedAt: now}
	created, err := store.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "u1", created.ID)
	assert.Nil(t, created.Stats.LastPlayed)

	// Duplicate email maps to the sentinel.
	_, err = store.CreateUser(ctx, model.User{ID: "u2", Name: "Dup", Email: "alice@example.com", CreatedAt: now})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	rec := model.ScoreRecord{
		ID:         "s1",
		UserID:     "u1",
		Game:       model.GameReaction,
		Score:      250,
		TimeMs:     120,
		Accuracy:   95.5,
		Difficulty: model.DifficultyMedium,
		Metadata:   model.Metadata{DeviceInfo: "test-agent", IPAddress: "127.0.0.1"},
		CreatedAt:  now,
	}
	require.NoError(t, store.Append(ctx, rec))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rec.Score, got.Score)
	assert.Equal(t, rec.Metadata, got.Metadata)
	assert.False(t, got.IsSuspicious)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrScoreNotFound)

	// Second, newer record for ordering checks.
	rec2 := rec
	rec2.ID = "s2"
	rec2.Game = model.GameMemory
	rec2.CreatedAt = now.Add(time.Minute)
	require.NoError(t, store.Append(ctx, rec2))

	history, err := store.ByUser(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "s2", history[0].ID)

	filtered, err := store.ByUser(ctx, "u1", model.GameMemory)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "s2", filtered[0].ID)

	count, err := store.CountScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPostgresStoreSuspiciousAndStats(t *testing.T) {
	store, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := store.CreateUser(ctx, model.User{ID: "u1", Name: "Alice", Email: "alice@example.com", CreatedAt: now})
	require.NoError(t, err)

	for i, flag := range []bool{true, false, true} {
		rec := model.ScoreRecord{
			ID:           []string{"s1", "s2", "s3"}[i],
			UserID:       "u1",
			Game:         model.GameAttention,
			Score:        float64(100 * (i + 1)),
			TimeMs:       50,
			Accuracy:     80,
			IsSuspicious: flag,
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Append(ctx, rec))
	}

	flagged, total, err := store.Suspicious(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, flagged, 1)
	assert.Equal(t, "s3", flagged[0].ID)

	updated, err := store.SetSuspicious(ctx, "s2", true)
	require.NoError(t, err)
	assert.True(t, updated.IsSuspicious)

	_, err = store.SetSuspicious(ctx, "missing", true)
	assert.ErrorIs(t, err, repository.ErrScoreNotFound)

	lastPlayed := now.Add(3 * time.Second)
	fresh, err := store.UpdateStats(ctx, "u1", model.UserStats{
		TotalGamesPlayed: 3,
		BestOverallScore: 300,
		AverageAccuracy:  80,
		LastPlayed:       &lastPlayed,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Stats.TotalGamesPlayed)
	require.NotNil(t, fresh.Stats.LastPlayed)
	assert.WithinDuration(t, lastPlayed, *fresh.Stats.LastPlayed, time.Millisecond)

	users, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, users)
}
