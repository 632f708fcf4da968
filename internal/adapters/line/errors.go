package line

import "errors"

// Sentinel errors for signal lines.
var (
	ErrPinNotFound = errors.New("gpio pin not found")
	ErrHostInit    = errors.New("gpio host init failed")
)
