package audio

import "errors"

// Sentinel kinds for audio rendering errors.
var (
	ErrNoNotes     = errors.New("no notes to render")
	ErrBadDuration = errors.New("tone duration must be positive")
)
