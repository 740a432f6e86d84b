// Package simulate plays game sessions against a running service over
// its HTTP API. It is a load and sanity tool: bots create sessions,
// poll the board, type keys with a configurable accuracy, and report
// aggregate results.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/molehit/molehit/pkg/logger"
)

const (
	pollInterval = 80 * time.Millisecond
	maxPlayTime  = 2 * time.Minute
	wrongKeys    = "0123456789"
)

// Run executes the full simulation.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg)

	log.Info(ctx, "starting session simulator",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Int("level", cfg.LevelID),
		logger.Float64("hitRate", cfg.HitRate),
	)

	if err := c.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker))) //nolint:gosec // simulation randomness
			for range jobs {
				if err := playSession(ctx, c, cfg, rng, stats); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					stats.recordFailure()
					if cfg.Verbose {
						log.Warn(ctx, "session failed", logger.Error(err))
					}
				}
			}
		}(w)
	}

	for i := 0; i < cfg.Sessions; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			i = cfg.Sessions
		}
	}
	close(jobs)
	wg.Wait()

	stats.EndTime = time.Now()
	report(ctx, log, stats)
	return nil
}

// playSession drives one full session from create to end.
func playSession(ctx context.Context, c *client, cfg *Config, rng *rand.Rand, stats *Stats) error {
	view, err := c.createSession(ctx, cfg.LevelID)
	if err != nil {
		return err
	}

	keys, hits := 0, 0
	deadline := time.Now().Add(maxPlayTime)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}

		view, err = c.getSession(ctx, view.ID)
		if err != nil {
			return err
		}
		if view.Phase != "playing" {
			break
		}

		key := pickKey(view, cfg.HitRate, rng)
		if key == "" {
			continue
		}
		res, err := c.sendKey(ctx, view.ID, key)
		if err != nil {
			return err
		}
		keys++
		if res.Hit {
			hits++
		}
	}

	rec, err := c.endSession(ctx, view.ID)
	if err != nil {
		// The session may have timed out on its own; its score is still
		// in the last snapshot we saw.
		stats.recordSession(view.Score, keys, hits)
		return nil //nolint:nilerr // self-ended sessions are a success
	}
	stats.recordSession(rec.Score, keys, hits)
	return nil
}

// pickKey chooses the next keystroke: a visible target's character with
// probability hitRate, a deliberate miss otherwise, nothing when the
// board is empty.
func pickKey(view sessionView, hitRate float64, rng *rand.Rand) string {
	var visible []targetView
	for _, t := range view.Targets {
		if t.State == "visible" {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return ""
	}
	if rng.Float64() < hitRate {
		return visible[rng.Intn(len(visible))].Char
	}
	return string(wrongKeys[rng.Intn(len(wrongKeys))])
}

func report(ctx context.Context, log logger.Logger, stats *Stats) {
	duration := stats.EndTime.Sub(stats.StartTime)
	avgScore := 0
	if stats.SessionsPlayed > 0 {
		avgScore = stats.TotalScore / stats.SessionsPlayed
	}
	log.Info(ctx, "simulation finished",
		logger.Int("sessionsPlayed", stats.SessionsPlayed),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("keysSent", stats.KeysSent),
		logger.Int("hits", stats.Hits),
		logger.Int("avgScore", avgScore),
		logger.Int("bestScore", stats.BestScore),
		logger.Duration("duration", duration),
	)
}
