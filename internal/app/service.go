// Package service provides the core game service that implements the
// dependencies required by the HTTP API: it owns the session registry,
// drives each live session from a runner goroutine, and wires sessions
// to the event broker and the completed-session store.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/molehit/molehit/internal/adapters/events"
	"github.com/molehit/molehit/internal/adapters/repository"
	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/reconcile"
	"github.com/molehit/molehit/internal/domain/scoring"
	"github.com/molehit/molehit/internal/domain/session"
	"github.com/molehit/molehit/pkg/logger"
	"github.com/molehit/molehit/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultTickInterval = 100 * time.Millisecond
	defaultMaxSessions  = 1000
	defaultEventBuffer  = 256
)

// runner pairs a session with the goroutine driving its clock.
type runner struct {
	sess   *session.Session
	cancel context.CancelFunc
	done   chan struct{}
}

// Service implements the API dependencies for the game engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	levels    level.Repository
	store     reconcile.Store
	broker    *events.Broker
	finalizer *reconcile.Finalizer

	// Configuration
	tickInterval time.Duration
	hitHold      time.Duration
	maxSessions  int
	eventBuffer  int

	// State
	sessions map[string]*runner
	started  bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the completed-session store.
func WithStore(store reconcile.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLevels sets the level repository.
func WithLevels(repo level.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.levels = repo
		}
	}
}

// WithTickInterval sets the runner tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithHitHold sets the display-hold for hit targets.
func WithHitHold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.hitHold = d
		}
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithEventBuffer sets the per-subscriber event buffer size.
func WithEventBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.eventBuffer = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tickInterval: defaultTickInterval,
		hitHold:      session.DefaultHitHold,
		maxSessions:  defaultMaxSessions,
		eventBuffer:  defaultEventBuffer,
		sessions:     make(map[string]*runner),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.levels == nil {
		repo, err := level.NewStaticRepository()
		if err != nil {
			return err
		}
		s.levels = repo
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory session store")
	}
	s.broker = events.NewBroker(
		events.WithBufferSize(s.eventBuffer),
		events.WithLogger(s.logger.Named("events")),
	)
	s.finalizer = reconcile.NewFinalizer(s.store,
		reconcile.WithLogger(s.logger.Named("reconcile")),
	)

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.Duration("tickInterval", s.tickInterval),
		logger.Int("maxSessions", s.maxSessions),
	)
	return nil
}

// Stop ends every live session and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	runners := make([]*runner, 0, len(s.sessions))
	for _, r := range s.sessions {
		runners = append(runners, r)
	}
	s.sessions = make(map[string]*runner)
	s.mu.Unlock()

	ctx := context.Background()
	for _, r := range runners {
		r.cancel()
		<-r.done
		if err := r.sess.End(ctx, false); err != nil &&
			err != session.ErrAlreadyEnded && err != session.ErrInvalidTransition {
			s.logger.Warn(ctx, "ending session on shutdown",
				logger.String("session_id", r.sess.ID()),
				logger.Error(err),
			)
		}
	}
	_ = s.broker.Close()
	metrics.UpdateActiveSessions(0)
	s.logger.Info(ctx, "game service stopped")
}

// StartSession creates a session on the given level and begins play.
func (s *Service) StartSession(ctx context.Context, levelID int, userID string) (session.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return session.View{}, ErrNotStarted
	}
	if s.liveCountLocked() >= s.maxSessions {
		return session.View{}, ErrSessionLimit
	}

	def, err := s.levels.Get(ctx, levelID)
	if err != nil {
		return session.View{}, err
	}

	sess := session.New(def, userID,
		session.WithSink(meteredSink{next: s.broker}),
		session.WithFinalizer(s.finalizer),
		session.WithHitHold(s.hitHold),
	)
	if err := sess.Start(); err != nil {
		return session.View{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &runner{sess: sess, cancel: cancel, done: make(chan struct{})}
	s.sessions[sess.ID()] = r
	go s.run(runCtx, r)

	metrics.RecordSessionStarted()
	metrics.UpdateActiveSessions(s.liveCountLocked())
	s.logger.Info(ctx, "session started",
		logger.String("session_id", sess.ID()),
		logger.String("user_id", userID),
		logger.Int("level_id", levelID),
	)
	return sess.Snapshot(), nil
}

// run drives one session's clock until it ends or the runner is
// cancelled. Ticks on paused sessions are silent no-ops, so the ticker
// simply keeps going across pauses.
func (s *Service) run(ctx context.Context, r *runner) {
	defer close(r.done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last).Milliseconds()
			last = now
			if err := r.sess.Tick(ctx, delta); err != nil {
				s.logger.Error(ctx, "session tick",
					logger.String("session_id", r.sess.ID()),
					logger.Error(err),
				)
			}
			if r.sess.Phase() == session.PhaseEnded {
				s.afterEnd(r.sess.ID())
				return
			}
		}
	}
}

// afterEnd refreshes gauges once a session leaves play.
func (s *Service) afterEnd(sessionID string) {
	s.mu.RLock()
	live := s.liveCountLocked()
	s.mu.RUnlock()
	metrics.UpdateActiveSessions(live)
}

// GetSession returns a snapshot of a session.
func (s *Service) GetSession(ctx context.Context, id string) (session.View, error) {
	r, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return r.sess.Snapshot(), nil
}

// ActiveSession returns the user's live session, if any.
func (s *Service) ActiveSession(ctx context.Context, userID string) (session.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.sessions {
		if r.sess.UserID() != userID {
			continue
		}
		if p := r.sess.Phase(); p == session.PhasePlaying || p == session.PhasePaused {
			return r.sess.Snapshot(), nil
		}
	}
	return session.View{}, ErrNotFound
}

// PauseSession suspends a playing session.
func (s *Service) PauseSession(ctx context.Context, id string) (session.View, error) {
	r, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	if err := r.sess.Pause(); err != nil {
		return session.View{}, err
	}
	return r.sess.Snapshot(), nil
}

// ResumeSession continues a paused session.
func (s *Service) ResumeSession(ctx context.Context, id string) (session.View, error) {
	r, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	if err := r.sess.Resume(); err != nil {
		return session.View{}, err
	}
	return r.sess.Snapshot(), nil
}

// EndSession finishes a session early. The result is reconciled and
// persisted before the call returns.
func (s *Service) EndSession(ctx context.Context, id string) (session.View, error) {
	r, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	if err := r.sess.End(ctx, false); err != nil {
		return session.View{}, err
	}
	r.cancel()
	s.afterEnd(id)
	return r.sess.Snapshot(), nil
}

// ResetSession returns an ended or idle session to idle.
func (s *Service) ResetSession(ctx context.Context, id string) (session.View, error) {
	r, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	if err := r.sess.Reset(); err != nil {
		return session.View{}, err
	}
	r.cancel()
	return r.sess.Snapshot(), nil
}

// HandleKey routes one keystroke into a session.
func (s *Service) HandleKey(ctx context.Context, id string, key rune) (*scoring.HitResult, error) {
	r, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	res, err := r.sess.HandleKey(key)
	if err != nil {
		return nil, err
	}
	if res == nil {
		metrics.RecordKeystrokeMiss()
		return nil, nil
	}
	metrics.RecordTargetHit()
	metrics.ObserveReactionTime(float64(res.ReactionMs))
	return res, nil
}

// Subscribe attaches an event-stream subscriber to a session.
func (s *Service) Subscribe(ctx context.Context, id string) (*events.Subscriber, error) {
	if _, err := s.lookup(id); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(id)
}

// Levels lists the available level definitions.
func (s *Service) Levels(ctx context.Context) ([]level.Definition, error) {
	if s.levels == nil {
		return nil, ErrNotStarted
	}
	return s.levels.List(ctx)
}

// Level fetches one level definition.
func (s *Service) Level(ctx context.Context, id int) (level.Definition, error) {
	if s.levels == nil {
		return level.Definition{}, ErrNotStarted
	}
	return s.levels.Get(ctx, id)
}

// History lists a user's completed sessions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]session.CompletedSession, error) {
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store.History(ctx, userID, limit, offset)
}

// BestScore returns a user's highest-scoring completed session,
// optionally scoped to one level (levelID 0 means any level).
func (s *Service) BestScore(ctx context.Context, userID string, levelID int) (session.CompletedSession, error) {
	if s.store == nil {
		return session.CompletedSession{}, ErrNotStarted
	}
	return s.store.BestScore(ctx, userID, levelID)
}

// CompletedSession fetches one persisted session result.
func (s *Service) CompletedSession(ctx context.Context, sessionID string) (session.CompletedSession, error) {
	if s.store == nil {
		return session.CompletedSession{}, ErrNotStarted
	}
	return s.store.GetCompleted(ctx, sessionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	live := s.liveCountLocked()
	metrics.UpdateActiveSessions(live)
	return map[string]interface{}{
		"started":        s.started,
		"activeSessions": live,
		"totalSessions":  len(s.sessions),
		"maxSessions":    s.maxSessions,
		"tickIntervalMs": s.tickInterval.Milliseconds(),
	}
}

func (s *Service) lookup(id string) (*runner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	r, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *Service) liveCountLocked() int {
	n := 0
	for _, r := range s.sessions {
		if p := r.sess.Phase(); p == session.PhasePlaying || p == session.PhasePaused {
			n++
		}
	}
	return n
}

// meteredSink records gameplay metrics before forwarding to the broker.
type meteredSink struct {
	next session.Sink
}

func (m meteredSink) Publish(ev session.Event) {
	switch ev.Type {
	case session.EventTargetSpawned:
		metrics.RecordTargetSpawned()
	case session.EventTargetExpired:
		metrics.RecordTargetExpired()
	}
	m.next.Publish(ev)
}
