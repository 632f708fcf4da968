package raysim

import (
	"sync"
	"time"
)

// Source yields the rays a simulator replays.
type Source interface {
	Next() Ray
}

// Sequence replays a fixed list of rays and starts over after the last one.
type Sequence struct {
	mu   sync.Mutex
	rays []Ray
	next int
}

// NewSequence returns a Sequence over rays, or nil when rays is empty.
func NewSequence(rays []Ray) *Sequence {
	if len(rays) == 0 {
		return nil
	}
	return &Sequence{rays: append([]Ray(nil), rays...)}
}

// Next returns the next ray in order.
func (s *Sequence) Next() Ray {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rays[s.next]
	s.next = (s.next + 1) % len(s.rays)
	return r
}

// Predefined is the reference run used for repeatable dry runs: hits at
// 1.0s, 4.5s, 6.2s and 8.7s with energies 2.3, 1.5, 3.0 and 2.0.
func Predefined() []Ray {
	hits := []struct {
		at     time.Duration
		energy float64
	}{
		{1000 * time.Millisecond, 2.3},
		{4500 * time.Millisecond, 1.5},
		{6200 * time.Millisecond, 3.0},
		{8700 * time.Millisecond, 2.0},
	}
	rays := make([]Ray, len(hits))
	var prevEnd time.Duration
	for i, h := range hits {
		r := rayOf(h.energy)
		r.Gap = max(0, h.at-prevEnd)
		prevEnd = h.at + r.Width
		rays[i] = r
	}
	return rays
}

// rayOf applies the width rule: the HIGH lasts energy/10 seconds.
func rayOf(energy float64) Ray {
	return Ray{Energy: energy, Width: time.Duration(energy / 10 * float64(time.Second))}
}
