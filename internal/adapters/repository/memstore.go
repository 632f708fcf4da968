package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/parakeet/internal/domain/model"
)

const defaultMemoryCapacity = 1024

// MemoryStore keeps the most recent events in a fixed ring.
type MemoryStore struct {
	capacity int

	mu     sync.RWMutex
	ring   []model.Event
	next   int
	size   int
	closed bool
}

// NewMemoryStore creates a ring holding 1024 events unless configured.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{capacity: defaultMemoryCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]model.Event, s.capacity)
	return s
}

func (s *MemoryStore) Append(_ context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.size > 0 {
		last := s.ring[(s.next-1+s.capacity)%s.capacity]
		if before(e.Timestamp, last.Timestamp) {
			return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, e.Timestamp, last.Timestamp)
		}
	}
	s.ring[s.next] = e
	s.next = (s.next + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, s.size)
	out := make([]model.Event, n)
	first := (s.next - n + s.capacity) % s.capacity
	for i := 0; i < n; i++ {
		out[i] = s.ring[(first+i)%s.capacity]
	}
	return out, nil
}

func (s *MemoryStore) Last(_ context.Context) (model.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.size == 0 {
		return model.Event{}, false, nil
	}
	return s.ring[(s.next-1+s.capacity)%s.capacity], true, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Seed loads events without the order check, e.g. a replayed log tail.
func (s *MemoryStore) Seed(evs []model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range tail(evs, s.capacity) {
		s.ring[s.next] = e
		s.next = (s.next + 1) % s.capacity
		if s.size < s.capacity {
			s.size++
		}
	}
}
