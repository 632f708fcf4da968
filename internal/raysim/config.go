package raysim

import "time"

// Bounds limits the generated rays.
type Bounds struct {
	MinGap    time.Duration
	MaxGap    time.Duration
	MinEnergy float64
	MaxEnergy float64
}

// DefaultBounds waits 2-5s between rays of energy 1-10.
func DefaultBounds() Bounds {
	return Bounds{MinGap: 2 * time.Second, MaxGap: 5 * time.Second, MinEnergy: 1, MaxEnergy: 10}
}

// Config holds configuration for a ray-sim run.
type Config struct {
	SignalFile string // file the detector daemon polls
	Bounds     Bounds
	Count      int   // rays to emit; 0 runs until cancelled
	Seed       int64 // 0 seeds from the clock
	Verbose    bool
}

// Stats summarises a run.
type Stats struct {
	Rays        int
	TotalEnergy float64
	HighTime    time.Duration
	StartTime   time.Time
	EndTime     time.Time
}
