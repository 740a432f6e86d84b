package simulate

import (
	"sync"
	"time"
)

// Config holds configuration for the session simulator.
type Config struct {
	BaseURL  string        // Base URL of the service
	Sessions int           // Number of sessions to play
	Workers  int           // Number of concurrent players
	LevelID  int           // Level to play
	HitRate  float64       // Probability of pressing the right key
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Enable verbose logging
}

// Stats accumulates simulator results across workers.
type Stats struct {
	mu sync.Mutex

	SessionsPlayed int
	SessionsFailed int
	KeysSent       int
	Hits           int
	TotalScore     int
	BestScore      int

	StartTime time.Time
	EndTime   time.Time
}

func (s *Stats) recordSession(score, keys, hits int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SessionsPlayed++
	s.KeysSent += keys
	s.Hits += hits
	s.TotalScore += score
	if score > s.BestScore {
		s.BestScore = score
	}
}

func (s *Stats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SessionsFailed++
}
