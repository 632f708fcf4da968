package line

import (
	"context"
	"sync"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/internal/raysim"
)

// SimLine is an in-process detector: it schedules rays from a source
// and reads HIGH while one is passing.
type SimLine struct {
	src raysim.Source
	now func() time.Time

	mu         sync.Mutex
	start, end time.Time
}

// NewSimLine schedules the first ray from src relative to now(). A nil now
// uses time.Now.
func NewSimLine(src raysim.Source, now func() time.Time) *SimLine {
	if now == nil {
		now = time.Now
	}
	s := &SimLine{src: src, now: now}
	s.schedule(now())
	return s
}

func (s *SimLine) schedule(from time.Time) {
	r := s.src.Next()
	s.start = from.Add(r.Gap)
	s.end = s.start.Add(r.Width)
}

// Read reports HIGH inside the current ray window.
func (s *SimLine) Read(_ context.Context) (model.Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.end) {
		s.schedule(now)
	}
	if !now.Before(s.start) {
		return model.High, nil
	}
	return model.Low, nil
}

// String names the source.
func (s *SimLine) String() string { return "simulator" }

// Close is a no-op.
func (s *SimLine) Close() error { return nil }
