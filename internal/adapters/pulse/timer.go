// Package pulse measures how long the detector line stays HIGH.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/logger"
	"github.com/okian/parakeet/pkg/metrics"
)

const (
	defaultPollInterval = time.Millisecond
	defaultMaxPulse     = 10 * time.Second
	// edgeWaitSlice bounds a single WaitForEdge so cancellation is noticed.
	edgeWaitSlice = 100 * time.Millisecond
)

// Line is a readable digital signal.
type Line interface {
	Read(ctx context.Context) (model.Level, error)
}

// EdgeWaiter is implemented by lines that can block until the level changes.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// Clock supplies time to the timer.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stats counts what the timer has seen.
type Stats struct {
	Detected int64 `json:"detected"`
	Glitches int64 `json:"glitches"`
	Stuck    int64 `json:"stuck"`
}

// Timer turns LOW->HIGH->LOW transitions into pulses.
type Timer struct {
	line     Line
	edges    EdgeWaiter
	poll     time.Duration
	minPulse time.Duration
	maxPulse time.Duration
	clock    Clock
	logger   logger.Logger

	detected atomic.Int64
	glitches atomic.Int64
	stuck    atomic.Int64
}

// NewTimer creates a timer over line. Lines implementing EdgeWaiter are
// watched by interrupt instead of polling.
func NewTimer(line Line, opts ...Option) *Timer {
	t := &Timer{
		line:     line,
		poll:     defaultPollInterval,
		maxPulse: defaultMaxPulse,
		clock:    realClock{},
		logger:   logger.Get().Named("pulse"),
	}
	if ew, ok := line.(EdgeWaiter); ok {
		t.edges = ew
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run watches the line and calls emit for every accepted pulse until ctx is
// cancelled. It returns nil on cancellation and the read error otherwise.
// A line that is HIGH at start is not timed until it has gone LOW once.
func (t *Timer) Run(ctx context.Context, emit func(model.Pulse)) error {
	err := t.run(ctx, emit)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (t *Timer) run(ctx context.Context, emit func(model.Pulse)) error {
	lvl, err := t.read(ctx)
	if err != nil {
		return err
	}
	if lvl == model.High {
		t.logger.Warn(ctx, "line high at start; waiting for low before arming")
		if _, err := t.waitFor(ctx, model.Low, time.Time{}); err != nil {
			return err
		}
	}

	for {
		if _, err := t.waitFor(ctx, model.High, time.Time{}); err != nil {
			return err
		}
		start := t.clock.Now()

		var deadline time.Time
		if t.maxPulse > 0 {
			deadline = start.Add(t.maxPulse)
		}
		fell, err := t.waitFor(ctx, model.Low, deadline)
		if err != nil {
			return err
		}
		if !fell {
			t.stuck.Add(1)
			metrics.RecordPulseRejected("stuck_high")
			t.logger.Warn(ctx, "abandoning pulse", logger.Duration("max_pulse", t.maxPulse), logger.Error(ErrStuckHigh))
			if _, err := t.waitFor(ctx, model.Low, time.Time{}); err != nil {
				return err
			}
			t.logger.Info(ctx, "line released; re-armed")
			continue
		}

		p := model.NewPulse(start, t.clock.Now())
		if p.Duration <= 0 || p.Duration < t.minPulse {
			t.glitches.Add(1)
			metrics.RecordPulseRejected("glitch")
			t.logger.Debug(ctx, "pulse rejected", logger.Duration("duration", p.Duration), logger.Error(ErrGlitch))
			continue
		}

		t.detected.Add(1)
		metrics.RecordPulseDetected(p.Duration)
		emit(p)
	}
}

// waitFor blocks until the line reads want. With a non-zero deadline it
// reports false once the deadline passes.
func (t *Timer) waitFor(ctx context.Context, want model.Level, deadline time.Time) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		lvl, err := t.read(ctx)
		if err != nil {
			return false, err
		}
		if lvl == want {
			return true, nil
		}
		now := t.clock.Now()
		if !deadline.IsZero() && !now.Before(deadline) {
			return false, nil
		}

		if t.edges != nil {
			slice := edgeWaitSlice
			if !deadline.IsZero() {
				slice = min(slice, deadline.Sub(now))
			}
			t.edges.WaitForEdge(slice)
			continue
		}
		if err := t.clock.Sleep(ctx, t.poll); err != nil {
			return false, err
		}
	}
}

func (t *Timer) read(ctx context.Context) (model.Level, error) {
	lvl, err := t.line.Read(ctx)
	if err != nil {
		metrics.RecordLineError()
		t.logger.Error(ctx, "line read failed", logger.Error(err))
		return model.Low, fmt.Errorf("read line: %w", err)
	}
	return lvl, nil
}

// Stats returns the current counters.
func (t *Timer) Stats() Stats {
	return Stats{
		Detected: t.detected.Load(),
		Glitches: t.glitches.Load(),
		Stuck:    t.stuck.Load(),
	}
}
