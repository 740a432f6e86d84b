// Package level defines the static difficulty configuration a game session runs under.
package level

import (
	"context"
	"fmt"
	"time"
)

// Difficulty names a level's difficulty tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Multiplier returns the scoring multiplier for the difficulty.
// Unknown difficulties score like Easy.
func (d Difficulty) Multiplier() float64 {
	switch d {
	case Medium:
		return 1.5
	case Hard:
		return 2
	case Expert:
		return 3
	default:
		return 1
	}
}

// ParseDifficulty validates a difficulty string.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case Easy, Medium, Hard, Expert:
		return Difficulty(s), nil
	}
	return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidLevel, s)
}

// Definition is the immutable configuration of a playable level.
type Definition struct {
	ID            int
	Name          string
	Description   string
	Difficulty    Difficulty
	MaxTargets    int
	SpawnInterval time.Duration
	Lifetime      time.Duration
	TimeLimit     time.Duration
	TargetScore   int
	CharacterSet  []rune
}

// Validate enforces the stored invariants of a level definition.
func (d Definition) Validate() error {
	switch {
	case len(d.CharacterSet) == 0:
		return fmt.Errorf("%w: level %d has an empty character set", ErrInvalidLevel, d.ID)
	case d.Lifetime <= 0:
		return fmt.Errorf("%w: level %d lifetime must be positive", ErrInvalidLevel, d.ID)
	case d.MaxTargets < 1:
		return fmt.Errorf("%w: level %d must allow at least one target", ErrInvalidLevel, d.ID)
	case d.SpawnInterval <= 0:
		return fmt.Errorf("%w: level %d spawn interval must be positive", ErrInvalidLevel, d.ID)
	case d.TimeLimit <= 0:
		return fmt.Errorf("%w: level %d time limit must be positive", ErrInvalidLevel, d.ID)
	}
	if _, err := ParseDifficulty(string(d.Difficulty)); err != nil {
		return err
	}
	return nil
}

// Repository provides read access to level definitions.
type Repository interface {
	// Get returns the level with the given id, or ErrNotFound.
	Get(ctx context.Context, id int) (Definition, error)

	// List returns all playable levels ordered by id.
	List(ctx context.Context) ([]Definition, error)
}

// Defaults returns the built-in level table. Spawn cadence, board capacity
// and target lifetime tighten with each tier; character sets grow from the
// home row to the full alphabet.
func Defaults() []Definition {
	return []Definition{
		{
			ID:            1,
			Name:          "Home Row",
			Description:   "Gentle warm-up on the home row keys.",
			Difficulty:    Easy,
			MaxTargets:    2,
			SpawnInterval: 2000 * time.Millisecond,
			Lifetime:      4000 * time.Millisecond,
			TimeLimit:     60 * time.Second,
			TargetScore:   200,
			CharacterSet:  []rune("ASDFJKL"),
		},
		{
			ID:            2,
			Name:          "Top Row",
			Description:   "Faster moles across the top row.",
			Difficulty:    Medium,
			MaxTargets:    3,
			SpawnInterval: 1500 * time.Millisecond,
			Lifetime:      3000 * time.Millisecond,
			TimeLimit:     60 * time.Second,
			TargetScore:   400,
			CharacterSet:  []rune("QWERTYUIOP"),
		},
		{
			ID:            3,
			Name:          "Both Hands",
			Description:   "Home and bottom rows with little slack.",
			Difficulty:    Hard,
			MaxTargets:    4,
			SpawnInterval: 1000 * time.Millisecond,
			Lifetime:      2500 * time.Millisecond,
			TimeLimit:     60 * time.Second,
			TargetScore:   700,
			CharacterSet:  []rune("ASDFGHJKLZXCVBNM"),
		},
		{
			ID:            4,
			Name:          "Full Board",
			Description:   "Every letter, maximum pressure.",
			Difficulty:    Expert,
			MaxTargets:    5,
			SpawnInterval: 800 * time.Millisecond,
			Lifetime:      2000 * time.Millisecond,
			TimeLimit:     60 * time.Second,
			TargetScore:   1000,
			CharacterSet:  []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ"),
		},
	}
}
