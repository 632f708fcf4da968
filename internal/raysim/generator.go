// Package raysim fakes cosmic-ray hits for dry runs without a detector.
package raysim

import (
	"math/rand"
	"sync"
	"time"
)

// Ray is one simulated hit: a quiet gap followed by a HIGH of Width.
type Ray struct {
	Gap    time.Duration
	Energy float64
	Width  time.Duration
}

// Generator draws rays with a uniform gap and a uniform energy. The HIGH
// lasts energy/10 seconds.
type Generator struct {
	minGap, maxGap       time.Duration
	minEnergy, maxEnergy float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator builds a generator. A zero seed uses the current time.
func NewGenerator(b Bounds, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		minGap:    b.MinGap,
		maxGap:    b.MaxGap,
		minEnergy: b.MinEnergy,
		maxEnergy: b.MaxEnergy,
		rng:       rand.New(rand.NewSource(seed)), //nolint:gosec // simulation only
	}
}

// Next draws the next ray.
func (g *Generator) Next() Ray {
	g.mu.Lock()
	defer g.mu.Unlock()

	gap := g.minGap
	if g.maxGap > g.minGap {
		gap += time.Duration(g.rng.Int63n(int64(g.maxGap - g.minGap)))
	}
	r := rayOf(g.minEnergy + g.rng.Float64()*(g.maxEnergy-g.minEnergy))
	r.Gap = gap
	return r
}
