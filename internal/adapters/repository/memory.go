// Package repository provides completed-session stores: an in-memory
// store for tests and ephemeral deployments, and a SQLite store for
// durable history.
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/molehit/molehit/internal/domain/reconcile"
	"github.com/molehit/molehit/internal/domain/session"
)

// MemoryStore keeps completed sessions in process memory. Safe for
// concurrent use. Everything is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]session.CompletedSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]session.CompletedSession)}
}

// SaveCompleted stores a record, refusing duplicates by session id.
func (m *MemoryStore) SaveCompleted(ctx context.Context, rec session.CompletedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[rec.SessionID]; ok {
		return reconcile.ErrAlreadyCompleted
	}
	m.byID[rec.SessionID] = rec
	return nil
}

// GetCompleted fetches one record by session id.
func (m *MemoryStore) GetCompleted(ctx context.Context, sessionID string) (session.CompletedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[sessionID]
	if !ok {
		return session.CompletedSession{}, reconcile.ErrNotFound
	}
	return rec, nil
}

// History lists a user's completed sessions, newest first.
func (m *MemoryStore) History(ctx context.Context, userID string, limit, offset int) ([]session.CompletedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var recs []session.CompletedSession
	for _, rec := range m.byID {
		if rec.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CompletedAt.After(recs[j].CompletedAt)
	})

	if offset >= len(recs) {
		return nil, nil
	}
	recs = recs[offset:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	out := make([]session.CompletedSession, len(recs))
	copy(out, recs)
	return out, nil
}

// BestScore returns the user's highest-scoring completed session,
// scoped to one level when levelID is non-zero.
func (m *MemoryStore) BestScore(ctx context.Context, userID string, levelID int) (session.CompletedSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best session.CompletedSession
	found := false
	for _, rec := range m.byID {
		if rec.UserID != userID {
			continue
		}
		if levelID != 0 && rec.LevelID != levelID {
			continue
		}
		if !found || rec.Score > best.Score {
			best = rec
			found = true
		}
	}
	if !found {
		return session.CompletedSession{}, reconcile.ErrNotFound
	}
	return best, nil
}
