package session

import (
	"context"
	"time"
)

// Result is the raw end-of-session snapshot handed to the finalizer.
// It carries everything needed to validate and persist the outcome.
type Result struct {
	SessionID   string
	UserID      string
	LevelID     int
	Score       int
	Accuracy    float64
	WPM         float64
	MaxCombo    int
	Hits        int
	Misses      int
	TimeLimit   time.Duration
	RemainingMs int64
	StartedAt   time.Time
	EndedAt     time.Time
	Completed   bool
}

// CompletedSession is the persisted record of a finished session.
type CompletedSession struct {
	SessionID       string    `json:"sessionId"`
	UserID          string    `json:"userId,omitempty"`
	LevelID         int       `json:"levelId"`
	Score           int       `json:"score"`
	Accuracy        float64   `json:"accuracy"`
	WPM             float64   `json:"wpm"`
	MaxCombo        int       `json:"maxCombo"`
	HitsCount       int       `json:"hitsCount"`
	MissesCount     int       `json:"missesCount"`
	DurationSeconds int       `json:"durationSeconds"`
	IsCompleted     bool      `json:"isCompleted"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Finalizer turns a raw result into a persisted completed session.
// Implementations validate before saving and never clamp.
type Finalizer interface {
	Finalize(ctx context.Context, res Result) (CompletedSession, error)
}
