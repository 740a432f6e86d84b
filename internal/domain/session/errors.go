package session

import "errors"

var (
	// ErrInvalidTransition is returned when a command is not legal in the
	// session's current phase. The session state is left untouched.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrAlreadyEnded is returned when End is called on an ended session.
	ErrAlreadyEnded = errors.New("session already ended")
)
