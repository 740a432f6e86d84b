package level

import "errors"

// Sentinel kinds for level lookup and validation errors.
var (
	ErrNotFound     = errors.New("level not found")
	ErrInvalidLevel = errors.New("invalid level definition")
)
