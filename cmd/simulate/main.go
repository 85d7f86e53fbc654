package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/focusup/backend/internal/simulate"
	"github.com/focusup/backend/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers    = 100
	defaultNumScores   = 5000
	defaultRankingSize = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers    = flag.Int("users", defaultNumUsers, "Number of synthetic players to register")
		numScores   = flag.Int("scores", defaultNumScores, "Number of score submissions to generate")
		rankingSize = flag.Int("top", defaultRankingSize, "Number of standings to fetch per game")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:     *baseURL,
		NumUsers:    *numUsers,
		NumScores:   *numScores,
		Workers:     *workers,
		Timeout:     *timeout,
		RankingSize: *rankingSize,
		Verbose:     *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
