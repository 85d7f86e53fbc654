package simulate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/focusup/backend/internal/domain/model"
	"github.com/focusup/backend/internal/domain/ranking"
	"github.com/focusup/backend/pkg/logger"
)

const settleDelay = 2 * time.Second

// Run executes the complete simulation: register players, flood the
// ingestion endpoint, then fetch and verify every per-game ranking.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting focusup simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("scores", config.NumScores),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	userIDs, err := registerUsers(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("user registration failed: %w", err)
	}

	subs := generateSubmissions(config.NumScores, userIDs)
	stats.ScoresGenerated = len(subs)

	if err := submitScores(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for notifications to drain")
	time.Sleep(settleDelay)

	if err := verifyRankings(ctx, config, stats); err != nil {
		return fmt.Errorf("ranking verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if err := readJSON(resp, nil); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// registerUsers creates the synthetic player pool and returns their ids.
func registerUsers(ctx context.Context, config *Config, stats *Stats) ([]string, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/users"

	userIDs := make([]string, 0, config.NumUsers)
	for i := 0; i < config.NumUsers; i++ {
		name, email := userName(i)
		resp, err := client.postJSON(ctx, url, map[string]string{"name": name, "email": email})
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		var user model.User
		if err := readJSON(resp, &user); err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusCreated {
			return nil, fmt.Errorf("create user %d returned status %d", i, resp.StatusCode)
		}
		userIDs = append(userIDs, user.ID)
	}

	stats.UsersCreated = len(userIDs)
	logger.Get().Info(ctx, "registered synthetic players", logger.Int("count", len(userIDs)))
	return userIDs, nil
}

// submitScores pushes submissions through a bounded worker pool.
func submitScores(ctx context.Context, config *Config, subs []Submission, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/api/scores"

	var (
		submitted  int64
		successful int64
		rejected   int64
		failed     int64
	)

	subChan := make(chan Submission, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range subChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				resp, err := client.postJSON(ctx, url, sub)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				_ = readJSON(resp, nil)
				switch {
				case resp.StatusCode == http.StatusCreated:
					atomic.AddInt64(&successful, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(subChan)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case subChan <- sub:
			}
		}
	}()

	wg.Wait()

	stats.ScoresSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ScoresSuccessful = int(atomic.LoadInt64(&successful))
	stats.ScoresRejected = int(atomic.LoadInt64(&rejected))
	stats.ScoresFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "score submission completed",
		logger.Int("successful", stats.ScoresSuccessful),
		logger.Int("rejected", stats.ScoresRejected),
		logger.Int("failed", stats.ScoresFailed))
	return nil
}

// verifyRankings fetches every per-game ranking and checks its
// ordering invariants.
func verifyRankings(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout)

	for _, game := range model.Games() {
		url := fmt.Sprintf("%s/api/scores/ranking?game=%s&limit=%d", config.BaseURL, game, config.RankingSize)
		resp, err := client.get(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch ranking for %s: %w", game, err)
		}
		var body struct {
			Game      model.Game         `json:"game"`
			Standings []ranking.Standing `json:"standings"`
		}
		if err := readJSON(resp, &body); err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ranking for %s returned status %d", game, resp.StatusCode)
		}

		if err := verifyStandings(body.Standings); err != nil {
			return fmt.Errorf("ranking for %s is inconsistent: %w", game, err)
		}
		stats.RankingsFetched++

		if config.Verbose {
			logger.Get().Info(ctx, "ranking verified",
				logger.String("game", string(game)),
				logger.Int("standings", len(body.Standings)))
		}
	}
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, scoresPerSecond float64

	if stats.ScoresSubmitted > 0 {
		successRate = float64(stats.ScoresSuccessful) / float64(stats.ScoresSubmitted) * 100
	}
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("usersCreated", stats.UsersCreated),
		logger.Int("scoresGenerated", stats.ScoresGenerated),
		logger.Int("scoresSubmitted", stats.ScoresSubmitted),
		logger.Int("scoresSuccessful", stats.ScoresSuccessful),
		logger.Int("scoresRejected", stats.ScoresRejected),
		logger.Int("scoresFailed", stats.ScoresFailed),
		logger.Int("rankingsFetched", stats.RankingsFetched),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
