package repository

import "errors"

// Sentinel kinds for event store errors.
var (
	ErrOutOfOrder   = errors.New("event timestamp precedes the last stored event")
	ErrInvalidLimit = errors.New("invalid event limit")
	ErrClosed       = errors.New("store closed")
)
