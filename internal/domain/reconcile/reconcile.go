// Package reconcile validates a session's final snapshot and persists it
// as a completed-session record. It sits between the session state
// machine and the store: the engine is authoritative, so anything out of
// bounds here points at a bug and is rejected rather than repaired.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
	"github.com/molehit/molehit/pkg/metrics"
)

// Store persists and queries completed sessions. Implementations must
// return ErrAlreadyCompleted for a duplicate session id and ErrNotFound
// for unknown records, and must be safe for concurrent use.
type Store interface {
	SaveCompleted(ctx context.Context, rec session.CompletedSession) error
	GetCompleted(ctx context.Context, sessionID string) (session.CompletedSession, error)
	History(ctx context.Context, userID string, limit, offset int) ([]session.CompletedSession, error)
	// BestScore returns the user's highest-scoring completed session,
	// optionally filtered to one level (levelID 0 means any level).
	BestScore(ctx context.Context, userID string, levelID int) (session.CompletedSession, error)
}

// Finalizer builds, validates and saves completed-session records.
// It implements session.Finalizer.
type Finalizer struct {
	store Store
	log   logger.Logger
}

// Option applies a configuration option to the Finalizer.
type Option func(*Finalizer)

// WithLogger sets the finalizer's logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Finalizer) { f.log = l }
}

// NewFinalizer creates a finalizer backed by the given store.
func NewFinalizer(store Store, opts ...Option) *Finalizer {
	f := &Finalizer{
		store: store,
		log:   logger.Get().Named("reconcile"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize validates the raw result, derives the persisted record and
// saves it with a single store attempt. Validation failures and storage
// errors both leave the store untouched from the caller's point of view;
// storage errors are surfaced unchanged.
func (f *Finalizer) Finalize(ctx context.Context, res session.Result) (session.CompletedSession, error) {
	if err := validate(res); err != nil {
		metrics.RecordReconcileReject()
		f.log.Warn(ctx, "rejecting session result",
			logger.String("session_id", res.SessionID),
			logger.Error(err),
		)
		return session.CompletedSession{}, err
	}

	rec := session.CompletedSession{
		SessionID:       res.SessionID,
		UserID:          res.UserID,
		LevelID:         res.LevelID,
		Score:           res.Score,
		Accuracy:        res.Accuracy,
		WPM:             res.WPM,
		MaxCombo:        res.MaxCombo,
		HitsCount:       res.Hits,
		MissesCount:     res.Misses,
		DurationSeconds: duration(res),
		IsCompleted:     res.Completed,
		CompletedAt:     res.EndedAt,
	}

	if err := f.store.SaveCompleted(ctx, rec); err != nil {
		if !errors.Is(err, ErrAlreadyCompleted) {
			metrics.RecordStorageError()
		}
		return session.CompletedSession{}, err
	}

	metrics.ObserveFinalScore(float64(rec.Score))
	metrics.RecordSessionEnded(rec.IsCompleted)
	f.log.Info(ctx, "session reconciled",
		logger.String("session_id", rec.SessionID),
		logger.Int("score", rec.Score),
		logger.Bool("completed", rec.IsCompleted),
	)
	return rec, nil
}

// duration reports played seconds. A timed-out session is measured on
// the game clock so pauses do not inflate it; an early end falls back to
// wall clock.
func duration(res session.Result) int {
	if res.Completed {
		return int(res.TimeLimit.Seconds()) - int(res.RemainingMs/1000)
	}
	return int(res.EndedAt.Sub(res.StartedAt).Seconds())
}

func validate(res session.Result) error {
	switch {
	case res.SessionID == "":
		return fmt.Errorf("%w: empty session id", ErrInvalidResult)
	case res.Score < 0:
		return fmt.Errorf("%w: negative score %d", ErrInvalidResult, res.Score)
	case res.Accuracy < 0 || res.Accuracy > 100:
		return fmt.Errorf("%w: accuracy %.2f out of range", ErrInvalidResult, res.Accuracy)
	case res.WPM < 0:
		return fmt.Errorf("%w: negative wpm %.2f", ErrInvalidResult, res.WPM)
	case res.Hits < 0 || res.Misses < 0 || res.MaxCombo < 0:
		return fmt.Errorf("%w: negative counters", ErrInvalidResult)
	}
	return nil
}
