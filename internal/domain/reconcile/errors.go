package reconcile

import "errors"

var (
	// ErrInvalidResult marks a final snapshot that fails validation.
	// Invalid results are rejected outright, never clamped or saved.
	ErrInvalidResult = errors.New("invalid session result")

	// ErrAlreadyCompleted is returned when a session id was finalized
	// and saved before.
	ErrAlreadyCompleted = errors.New("session already completed")

	// ErrNotFound is returned by stores for unknown records.
	ErrNotFound = errors.New("completed session not found")
)
