package service

import "errors"

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session not found")

	// ErrSessionLimit is returned when starting a session would exceed
	// the configured live-session cap.
	ErrSessionLimit = errors.New("session limit reached")

	// ErrNotStarted is returned when the service has not been started.
	ErrNotStarted = errors.New("service not started")
)
