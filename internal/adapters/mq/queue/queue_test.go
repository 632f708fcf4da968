package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
)

func pulseOf(ms int) model.Pulse {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.NewPulse(start, start.Add(time.Duration(ms)*time.Millisecond))
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, pulseOf(10)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	p := <-q.Dequeue(ctx)
	if p.Duration != 10*time.Millisecond {
		t.Errorf("expected 10ms pulse, got %v", p.Duration)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, pulseOf(1)) || !q.Enqueue(ctx, pulseOf(2)) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(ctx, pulseOf(3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		if !q.Enqueue(ctx, pulseOf(i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	_ = q.Close()

	want := 1
	for p := range q.Dequeue(ctx) {
		if p.Duration != time.Duration(want)*time.Millisecond {
			t.Fatalf("expected pulse %d, got %v", want, p.Duration)
		}
		want++
	}
	if want != 51 {
		t.Errorf("expected 50 pulses after close, got %d", want-1)
	}
}

func TestInMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, pulseOf(i+1))
			}
		}()
	}
	wg.Wait()

	if l := q.Len(ctx); l != 500 {
		t.Errorf("expected 500 pulses, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	q.Enqueue(ctx, pulseOf(1))
	q.Enqueue(ctx, pulseOf(2))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, pulseOf(3)) {
		t.Error("expected enqueue to fail after closing")
	}

	drained := 0
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 2 {
					t.Errorf("expected 2 drained pulses, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to close within timeout")
		}
	}
}
