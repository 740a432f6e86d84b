// Package target owns the set of live targets on the board: spawning,
// expiry, and keystroke matching.
package target

import (
	"math/rand"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/molehit/molehit/internal/domain/level"
)

// State tracks a target's lifecycle. Hit and Expired are terminal; a
// target leaves Visible at most once.
type State string

const (
	StateVisible State = "visible"
	StateHit     State = "hit"
	StateExpired State = "expired"
)

// Position bounds for spawned targets, in percent of the play field.
// The margins keep moles away from the field edges.
const (
	minX, spanX = 10.0, 80.0
	minY, spanY = 20.0, 60.0
)

// Target is a single on-screen character the player must type before its
// deadline. Position is presentation-only and never scored.
type Target struct {
	ID        string  `json:"id"`
	Char      rune    `json:"-"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	SpawnedAt int64   `json:"spawnedAtMs"`
	Deadline  int64   `json:"deadlineMs"`
	State     State   `json:"state"`
}

// CharString returns the target character as a string, for wire encoding.
func (t *Target) CharString() string { return string(t.Char) }

// Board holds the targets of one session in spawn order. It carries no
// timers of its own; the session tick drives all mutation.
type Board struct {
	rng     *rand.Rand
	targets []*Target
	spawned int
}

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithRandSeed makes spawn characters and positions deterministic.
func WithRandSeed(seed int64) Option {
	return func(b *Board) {
		b.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // gameplay randomness, not security
	}
}

// NewBoard creates an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // gameplay randomness
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Spawn adds a fresh visible target drawn from the level's character set.
// The caller is responsible for checking the level's max-targets bound
// first; spawn policy belongs to the session, not the board.
func (b *Board) Spawn(def level.Definition, nowMs int64) *Target {
	t := &Target{
		ID:        uuid.NewString(),
		Char:      def.CharacterSet[b.rng.Intn(len(def.CharacterSet))],
		X:         minX + b.rng.Float64()*spanX,
		Y:         minY + b.rng.Float64()*spanY,
		SpawnedAt: nowMs,
		Deadline:  nowMs + def.Lifetime.Milliseconds(),
		State:     StateVisible,
	}
	b.targets = append(b.targets, t)
	b.spawned++
	return t
}

// ExpireDue transitions every visible target whose deadline has passed to
// Expired, removes it from the board, and returns the expired ids. Calling
// again with the same clock yields nothing: expired targets are gone.
func (b *Board) ExpireDue(nowMs int64) []string {
	var expired []string
	kept := b.targets[:0]
	for _, t := range b.targets {
		if t.State == StateVisible && t.Deadline <= nowMs {
			t.State = StateExpired
			expired = append(expired, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	b.targets = kept
	return expired
}

// Match maps a keystroke to at most one visible target. Comparison is
// case-insensitive; among candidates the earliest deadline wins, so the
// most urgent target absorbs the hit. Returns nil when nothing matches.
func (b *Board) Match(key rune) *Target {
	want := unicode.ToUpper(key)
	var best *Target
	for _, t := range b.targets {
		if t.State != StateVisible || unicode.ToUpper(t.Char) != want {
			continue
		}
		if best == nil || t.Deadline < best.Deadline {
			best = t
		}
	}
	return best
}

// MarkHit performs the Visible -> Hit transition. Returns false if the
// target is unknown or already terminal.
func (b *Board) MarkHit(id string) bool {
	for _, t := range b.targets {
		if t.ID == id && t.State == StateVisible {
			t.State = StateHit
			return true
		}
	}
	return false
}

// Remove drops a target from the board regardless of state. Used once a
// hit target's display-hold elapses and when a session ends.
func (b *Board) Remove(id string) {
	for i, t := range b.targets {
		if t.ID == id {
			b.targets = append(b.targets[:i], b.targets[i+1:]...)
			return
		}
	}
}

// Clear removes every target. Used on session end and reset.
func (b *Board) Clear() {
	b.targets = nil
}

// Visible returns a snapshot of the board's targets in spawn order,
// oldest first. Hit targets in their display-hold are included so the UI
// can render the hit animation.
func (b *Board) Visible() []*Target {
	out := make([]*Target, len(b.targets))
	copy(out, b.targets)
	return out
}

// VisibleCount reports how many targets are still matchable.
func (b *Board) VisibleCount() int {
	n := 0
	for _, t := range b.targets {
		if t.State == StateVisible {
			n++
		}
	}
	return n
}

// SpawnedCount reports the total number of targets ever spawned.
func (b *Board) SpawnedCount() int { return b.spawned }
