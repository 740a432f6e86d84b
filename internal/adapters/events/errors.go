package events

import "errors"

// ErrClosed is returned when subscribing to a closed broker.
var ErrClosed = errors.New("event broker closed")
