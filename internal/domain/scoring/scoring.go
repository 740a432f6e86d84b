// Package scoring maintains the running score, combo, accuracy and WPM of
// a single session. The point formula is the scoring contract: the same
// sequence of (reaction time, combo) pairs must always produce the same
// totals.
package scoring

import (
	"math"
	"time"

	"github.com/molehit/molehit/internal/domain/level"
	"github.com/molehit/molehit/internal/domain/target"
)

// Scoring constants.
const (
	// ComboWindow is the maximum gap between hits that extends a combo.
	// A gap at or above the window resets the combo to 1.
	ComboWindow = 2 * time.Second

	// basePoints is the flat value of a hit before any bonus.
	basePoints = 10

	// comboBonusStep and comboBonusCap shape the combo bonus:
	// 10% per combo step, capped at +200%.
	comboBonusStep = 0.1
	comboBonusCap  = 2.0

	// charsPerWord is the conventional word length for WPM.
	charsPerWord = 5
)

// HitResult describes the outcome of a registered hit.
type HitResult struct {
	TargetID   string
	Points     int
	Combo      int
	ReactionMs int64
}

// Snapshot is a read-only copy of the tracker's counters.
type Snapshot struct {
	Score    int
	Combo    int
	MaxCombo int
	Hits     int
	Misses   int
}

// Tracker accumulates scoring state for one session. It is a plain state
// container; the session serializes access to it.
type Tracker struct {
	score     int
	combo     int
	maxCombo  int
	hits      int
	misses    int
	lastHitAt int64
}

// NewTracker returns a zeroed tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RegisterHit scores a matched target at nowMs under the given level.
//
// Combo: the first hit of a session always counts as combo 1; later hits
// extend the streak only when the gap to the previous hit is inside the
// combo window. Points: base times difficulty multiplier, scaled by
// (1 + timeBonus + comboBonus) where timeBonus is the unused fraction of
// the target's lifetime and comboBonus is 0.1 per combo step capped at 2.
func (s *Tracker) RegisterHit(t *target.Target, nowMs int64, def level.Definition) HitResult {
	reaction := nowMs - t.SpawnedAt

	if s.hits > 0 && nowMs-s.lastHitAt < ComboWindow.Milliseconds() {
		s.combo++
	} else {
		s.combo = 1
	}
	s.lastHitAt = nowMs
	if s.combo > s.maxCombo {
		s.maxCombo = s.combo
	}

	lifetime := def.Lifetime.Milliseconds()
	base := basePoints * def.Difficulty.Multiplier()
	timeBonus := float64(lifetime-reaction) / float64(lifetime)
	if timeBonus < 0 {
		timeBonus = 0
	}
	comboBonus := math.Min(float64(s.combo)*comboBonusStep, comboBonusCap)
	points := int(math.Round(base * (1 + timeBonus + comboBonus)))

	s.score += points
	s.hits++

	return HitResult{
		TargetID:   t.ID,
		Points:     points,
		Combo:      s.combo,
		ReactionMs: reaction,
	}
}

// RegisterMiss records one expired target. Misses are counted only for
// expiry; a wrong keystroke breaks the combo but is not a miss, which
// keeps accuracy defined over targets rather than keystrokes.
func (s *Tracker) RegisterMiss() {
	s.misses++
	s.combo = 0
}

// BreakCombo resets the streak after a keystroke that matched nothing.
func (s *Tracker) BreakCombo() {
	s.combo = 0
}

// Accuracy returns hits over attempted targets as a percentage, 0 when
// nothing has been attempted.
func (s *Tracker) Accuracy() float64 {
	attempts := s.hits + s.misses
	if attempts == 0 {
		return 0
	}
	return float64(s.hits) / float64(attempts) * 100
}

// WPM approximates words per minute as (hits/5) per elapsed minute,
// 0 when no time has elapsed.
func (s *Tracker) WPM(elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(s.hits) / charsPerWord / minutes
}

// Snapshot copies the current counters.
func (s *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Score:    s.score,
		Combo:    s.combo,
		MaxCombo: s.maxCombo,
		Hits:     s.hits,
		Misses:   s.misses,
	}
}

// Reset returns the tracker to its zero state.
func (s *Tracker) Reset() {
	*s = Tracker{}
}
