// Package queue decouples the pulse timer from the slower recorder.
package queue

import (
	"context"
	"sync"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Pulse is the unit of work carried by the queue.
type Pulse = model.Pulse

// Queue is a bounded FIFO of pulses.
type Queue interface {
	// Enqueue never blocks; it reports false when the pulse was dropped.
	Enqueue(ctx context.Context, p Pulse) bool

	// Dequeue streams pulses in arrival order until the queue is closed
	// and drained or ctx is done.
	Dequeue(ctx context.Context) <-chan Pulse

	Len(ctx context.Context) int

	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	pulses   chan Pulse
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue holding up to 1024 pulses by default.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.pulses = make(chan Pulse, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds p unless the queue is closed or full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, p Pulse) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDropped()
		return false
	}

	select {
	case q.pulses <- p:
		metrics.UpdateQueueSize(len(q.pulses))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDropped()
		return false
	default:
		metrics.RecordQueueDropped()
		return false
	}
}

// Dequeue returns a channel fed from the queue. It is closed once the queue
// is closed and empty, or when ctx is done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Pulse {
	out := make(chan Pulse)
	go func() {
		defer close(out)
		for p := range q.pulses {
			select {
			case out <- p:
				metrics.UpdateQueueSize(len(q.pulses))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered pulses.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.pulses)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting pulses; buffered pulses remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.pulses)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
