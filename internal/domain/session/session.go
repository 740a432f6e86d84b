// Package session implements the game session state machine. A session
// moves Idle -> Playing <-> Paused -> Ended, with Reset returning it to
// Idle. All mutation is driven by commands and by Tick; the session owns
// its game clock, so paused time never leaks into deadlines or scoring.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/scoring"
	"github.com/molehit/molehit/internal/domain/target"
)

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePlaying Phase = "playing"
	PhasePaused  Phase = "paused"
	PhaseEnded   Phase = "ended"
)

// DefaultHitHold is how long a hit target stays on the board for the
// hit animation before removal.
const DefaultHitHold = 300 * time.Millisecond

// hold is a hit target waiting for its display-hold to elapse.
type hold struct {
	id       string
	removeAt int64
}

// Session is one player's game. Commands and ticks are serialized by an
// internal mutex; the app layer additionally confines each session to a
// single runner goroutine.
type Session struct {
	mu sync.Mutex

	id     string
	userID string
	def    level.Definition

	phase   Phase
	board   *target.Board
	tracker *scoring.Tracker

	clockMs      int64
	remainingMs  int64
	sinceSpawnMs int64
	holds        []hold

	holdMs    int64
	sink      Sink
	finalizer Finalizer
	nowFn     func() time.Time
	boardOpts []target.Option

	startedAt time.Time
	endedAt   time.Time
}

// Option applies a configuration option to the Session.
type Option func(*Session)

// WithSink sets the destination for gameplay events.
func WithSink(s Sink) Option {
	return func(g *Session) { g.sink = s }
}

// WithFinalizer sets the finalizer invoked on End. Without one the
// session still ends; the result is simply not persisted.
func WithFinalizer(f Finalizer) Option {
	return func(g *Session) { g.finalizer = f }
}

// WithHitHold overrides the display-hold for hit targets.
func WithHitHold(d time.Duration) Option {
	return func(g *Session) { g.holdMs = d.Milliseconds() }
}

// WithBoardSeed makes target spawning deterministic.
func WithBoardSeed(seed int64) Option {
	return func(g *Session) { g.boardOpts = append(g.boardOpts, target.WithRandSeed(seed)) }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Session) { g.nowFn = now }
}

// New creates an idle session for the given level and user.
func New(def level.Definition, userID string, opts ...Option) *Session {
	g := &Session{
		id:     uuid.NewString(),
		userID: userID,
		def:    def,
		phase:  PhaseIdle,
		holdMs: DefaultHitHold.Milliseconds(),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.board = target.NewBoard(g.boardOpts...)
	g.tracker = scoring.NewTracker()
	return g
}

// ID returns the session identifier.
func (g *Session) ID() string { return g.id }

// UserID returns the owning user, empty for guests.
func (g *Session) UserID() string { return g.userID }

// Level returns the session's level definition.
func (g *Session) Level() level.Definition { return g.def }

// Phase returns the current phase.
func (g *Session) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Start begins play. Legal from Idle and Ended; counters, clock and
// board start fresh. The spawn cadence is primed so the first target
// appears on the first tick.
func (g *Session) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseIdle && g.phase != PhaseEnded {
		return ErrInvalidTransition
	}

	g.phase = PhasePlaying
	g.tracker.Reset()
	g.board.Clear()
	g.holds = nil
	g.clockMs = 0
	g.remainingMs = g.def.TimeLimit.Milliseconds()
	g.sinceSpawnMs = g.def.SpawnInterval.Milliseconds()
	g.startedAt = g.nowFn()
	g.endedAt = time.Time{}
	return nil
}

// Pause suspends play. Legal from Playing only.
func (g *Session) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhasePlaying {
		return ErrInvalidTransition
	}
	g.phase = PhasePaused
	return nil
}

// Resume continues a paused session.
func (g *Session) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhasePaused {
		return ErrInvalidTransition
	}
	g.phase = PhasePlaying
	return nil
}

// Reset returns an idle or ended session to Idle, dropping all state.
func (g *Session) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseIdle && g.phase != PhaseEnded {
		return ErrInvalidTransition
	}
	g.phase = PhaseIdle
	g.tracker.Reset()
	g.board.Clear()
	g.holds = nil
	g.clockMs = 0
	g.remainingMs = 0
	g.sinceSpawnMs = 0
	return nil
}

// Tick advances the game clock by deltaMs. On any phase other than
// Playing it is a silent no-op: the runner keeps ticking across pauses
// and a stale tick racing an End must not be an error. When the time
// limit runs out the session ends itself with completed=true.
func (g *Session) Tick(ctx context.Context, deltaMs int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhasePlaying || deltaMs <= 0 {
		return nil
	}

	g.clockMs += deltaMs
	g.remainingMs -= deltaMs
	if g.remainingMs < 0 {
		g.remainingMs = 0
	}

	g.sweepHolds()

	for _, id := range g.board.ExpireDue(g.clockMs) {
		g.tracker.RegisterMiss()
		g.publish(Event{Type: EventTargetExpired, TargetID: id})
	}

	g.sinceSpawnMs += deltaMs
	if g.sinceSpawnMs >= g.def.SpawnInterval.Milliseconds() && g.board.VisibleCount() < g.def.MaxTargets {
		t := g.board.Spawn(g.def, g.clockMs)
		g.sinceSpawnMs = 0
		v := viewOf(t)
		g.publish(Event{Type: EventTargetSpawned, Target: &v})
	}

	g.publish(Event{Type: EventTimeUpdated, RemainingMs: g.remainingMs})

	if g.remainingMs == 0 {
		return g.endLocked(ctx, true)
	}
	return nil
}

// HandleKey processes one keystroke. A match scores the earliest-deadline
// visible target carrying the key and schedules its removal after the
// display-hold; anything else just breaks the combo. Returns the hit
// result, or nil when the key matched nothing.
func (g *Session) HandleKey(key rune) (*scoring.HitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhasePlaying {
		return nil, ErrInvalidTransition
	}

	t := g.board.Match(key)
	if t == nil {
		g.tracker.BreakCombo()
		return nil, nil
	}

	g.board.MarkHit(t.ID)
	res := g.tracker.RegisterHit(t, g.clockMs, g.def)
	g.holds = append(g.holds, hold{id: t.ID, removeAt: g.clockMs + g.holdMs})
	g.publish(Event{
		Type:     EventTargetHit,
		TargetID: res.TargetID,
		Points:   res.Points,
		Combo:    res.Combo,
	})
	return &res, nil
}

// End finishes the session. Legal from Playing and Paused; an ended
// session reports ErrAlreadyEnded. The phase flips before anything else
// so concurrent ticks and keystrokes are rejected immediately. The
// result then goes through the finalizer; its error is surfaced
// unchanged and suppresses the SessionEnded event.
func (g *Session) End(ctx context.Context, completed bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.endLocked(ctx, completed)
}

func (g *Session) endLocked(ctx context.Context, completed bool) error {
	switch g.phase {
	case PhaseEnded:
		return ErrAlreadyEnded
	case PhasePlaying, PhasePaused:
	default:
		return ErrInvalidTransition
	}

	g.phase = PhaseEnded
	g.endedAt = g.nowFn()
	g.board.Clear()
	g.holds = nil

	res := g.resultLocked(completed)

	completedRec := CompletedSession{
		SessionID:       res.SessionID,
		UserID:          res.UserID,
		LevelID:         res.LevelID,
		Score:           res.Score,
		Accuracy:        res.Accuracy,
		WPM:             res.WPM,
		MaxCombo:        res.MaxCombo,
		HitsCount:       res.Hits,
		MissesCount:     res.Misses,
		DurationSeconds: int(res.EndedAt.Sub(res.StartedAt).Seconds()),
		IsCompleted:     res.Completed,
		CompletedAt:     res.EndedAt,
	}
	if g.finalizer != nil {
		var err error
		completedRec, err = g.finalizer.Finalize(ctx, res)
		if err != nil {
			return err
		}
	}

	g.publish(Event{Type: EventSessionEnded, Result: &completedRec})
	return nil
}

func (g *Session) resultLocked(completed bool) Result {
	snap := g.tracker.Snapshot()
	return Result{
		SessionID:   g.id,
		UserID:      g.userID,
		LevelID:     g.def.ID,
		Score:       snap.Score,
		Accuracy:    g.tracker.Accuracy(),
		WPM:         g.tracker.WPM(g.playedLocked()),
		MaxCombo:    snap.MaxCombo,
		Hits:        snap.Hits,
		Misses:      snap.Misses,
		TimeLimit:   g.def.TimeLimit,
		RemainingMs: g.remainingMs,
		StartedAt:   g.startedAt,
		EndedAt:     g.endedAt,
		Completed:   completed,
	}
}

// playedLocked is the game time actually spent playing, pauses excluded.
func (g *Session) playedLocked() time.Duration {
	return time.Duration(g.clockMs) * time.Millisecond
}

// sweepHolds removes hit targets whose display-hold has elapsed.
func (g *Session) sweepHolds() {
	kept := g.holds[:0]
	for _, h := range g.holds {
		if h.removeAt <= g.clockMs {
			g.board.Remove(h.id)
			continue
		}
		kept = append(kept, h)
	}
	g.holds = kept
}

func (g *Session) publish(ev Event) {
	if g.sink == nil {
		return
	}
	ev.SessionID = g.id
	ev.AtMs = g.clockMs
	g.sink.Publish(ev)
}

// View is a read-only snapshot of a session for API responses.
type View struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId,omitempty"`
	LevelID     int          `json:"levelId"`
	Phase       Phase        `json:"phase"`
	Score       int          `json:"score"`
	Combo       int          `json:"combo"`
	MaxCombo    int          `json:"maxCombo"`
	Hits        int          `json:"hitsCount"`
	Misses      int          `json:"missesCount"`
	Accuracy    float64      `json:"accuracy"`
	WPM         float64      `json:"wpm"`
	RemainingMs int64        `json:"remainingMs"`
	Targets     []TargetView `json:"targets"`
}

// Snapshot returns the session's current view.
func (g *Session) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := g.tracker.Snapshot()
	live := g.board.Visible()
	targets := make([]TargetView, 0, len(live))
	for _, t := range live {
		targets = append(targets, viewOf(t))
	}
	return View{
		ID:          g.id,
		UserID:      g.userID,
		LevelID:     g.def.ID,
		Phase:       g.phase,
		Score:       snap.Score,
		Combo:       snap.Combo,
		MaxCombo:    snap.MaxCombo,
		Hits:        snap.Hits,
		Misses:      snap.Misses,
		Accuracy:    g.tracker.Accuracy(),
		WPM:         g.tracker.WPM(g.playedLocked()),
		RemainingMs: g.remainingMs,
		Targets:     targets,
	}
}
