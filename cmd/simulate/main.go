package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/molehit/molehit/internal/simulate"
	"github.com/molehit/molehit/pkg/logger"
)

// Default configuration constants.
const (
	defaultSessions = 10
	defaultWorkers  = 4
	defaultLevel    = 1
	defaultHitRate  = 0.8
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 30 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8090", "Base URL of the service")
		sessions = flag.Int("sessions", defaultSessions, "Number of sessions to play")
		workers  = flag.Int("workers", defaultWorkers, "Number of concurrent players")
		levelID  = flag.Int("level", defaultLevel, "Level id to play")
		hitRate  = flag.Float64("hitrate", defaultHitRate, "Probability of typing the right key (0..1)")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:  *baseURL,
		Sessions: *sessions,
		Workers:  *workers,
		LevelID:  *levelID,
		HitRate:  *hitRate,
		Timeout:  *timeout,
		Verbose:  *verbose,
	}

	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
