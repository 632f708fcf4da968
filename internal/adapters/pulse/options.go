package pulse

import (
	"time"

	"github.com/okian/parakeet/pkg/logger"
)

// Option applies a configuration option to the Timer.
type Option func(*Timer)

// WithPollInterval sets how often the line is sampled without edge support.
func WithPollInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.poll = d
		}
	}
}

// WithMinPulse rejects shorter pulses as glitches. Zero disables the check.
func WithMinPulse(d time.Duration) Option {
	return func(t *Timer) {
		if d >= 0 {
			t.minPulse = d
		}
	}
}

// WithMaxPulse abandons a HIGH lasting longer than d. Zero disables the check.
func WithMaxPulse(d time.Duration) Option {
	return func(t *Timer) {
		if d >= 0 {
			t.maxPulse = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(t *Timer) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Timer) {
		if l != nil {
			t.logger = l
		}
	}
}
