package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/molehit/molehit/internal/domain/reconcile"
	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS completed_sessions (
	session_id       TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL DEFAULT '',
	level_id         INTEGER NOT NULL,
	score            INTEGER NOT NULL,
	accuracy         REAL NOT NULL,
	wpm              REAL NOT NULL,
	max_combo        INTEGER NOT NULL,
	hits_count       INTEGER NOT NULL,
	misses_count     INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	is_completed     INTEGER NOT NULL,
	completed_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completed_user_time
	ON completed_sessions (user_id, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_completed_user_score
	ON completed_sessions (user_id, score DESC);
`

// SQLiteStore persists completed sessions in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteLogger sets the store's logger.
func WithSQLiteLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLiteStore) { s.log = l }
}

// NewSQLiteStore opens (creating if missing) the database at path with
// WAL journaling and a busy timeout, and bootstraps the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &SQLiteStore{
		db:  db,
		log: logger.Get().Named("sqlite"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCompleted inserts a record. A second save of the same session id
// trips the primary key and maps to ErrAlreadyCompleted.
func (s *SQLiteStore) SaveCompleted(ctx context.Context, rec session.CompletedSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completed_sessions (
			session_id, user_id, level_id, score, accuracy, wpm,
			max_combo, hits_count, misses_count, duration_seconds,
			is_completed, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.UserID, rec.LevelID, rec.Score, rec.Accuracy, rec.WPM,
		rec.MaxCombo, rec.HitsCount, rec.MissesCount, rec.DurationSeconds,
		rec.IsCompleted, rec.CompletedAt.UTC(),
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return reconcile.ErrAlreadyCompleted
		}
		return fmt.Errorf("save completed session: %w", err)
	}
	return nil
}

// GetCompleted fetches one record by session id.
func (s *SQLiteStore) GetCompleted(ctx context.Context, sessionID string) (session.CompletedSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, level_id, score, accuracy, wpm,
		       max_combo, hits_count, misses_count, duration_seconds,
		       is_completed, completed_at
		FROM completed_sessions WHERE session_id = ?`, sessionID)
	return scanRecord(row)
}

// History lists a user's completed sessions, newest first.
func (s *SQLiteStore) History(ctx context.Context, userID string, limit, offset int) ([]session.CompletedSession, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, level_id, score, accuracy, wpm,
		       max_combo, hits_count, misses_count, duration_seconds,
		       is_completed, completed_at
		FROM completed_sessions
		WHERE user_id = ?
		ORDER BY completed_at DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []session.CompletedSession
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BestScore returns the user's highest-scoring completed session,
// scoped to one level when levelID is non-zero.
func (s *SQLiteStore) BestScore(ctx context.Context, userID string, levelID int) (session.CompletedSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, level_id, score, accuracy, wpm,
		       max_combo, hits_count, misses_count, duration_seconds,
		       is_completed, completed_at
		FROM completed_sessions
		WHERE user_id = ? AND (? = 0 OR level_id = ?)
		ORDER BY score DESC, completed_at ASC
		LIMIT 1`, userID, levelID, levelID)
	return scanRecord(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (session.CompletedSession, error) {
	var rec session.CompletedSession
	var completedAt time.Time
	err := row.Scan(
		&rec.SessionID, &rec.UserID, &rec.LevelID, &rec.Score, &rec.Accuracy,
		&rec.WPM, &rec.MaxCombo, &rec.HitsCount, &rec.MissesCount,
		&rec.DurationSeconds, &rec.IsCompleted, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return session.CompletedSession{}, reconcile.ErrNotFound
	}
	if err != nil {
		return session.CompletedSession{}, fmt.Errorf("scan completed session: %w", err)
	}
	rec.CompletedAt = completedAt
	return rec, nil
}
