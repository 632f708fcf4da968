package pulse

import "errors"

// Reasons a pulse is not emitted.
var (
	ErrGlitch    = errors.New("pulse shorter than debounce window")
	ErrStuckHigh = errors.New("line stuck high")
)
