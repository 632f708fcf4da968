// Package worker turns queued pulses into recorded events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/internal/domain/sonify"
	"github.com/okian/parakeet/pkg/logger"
	"github.com/okian/parakeet/pkg/metrics"
)

// Queue defines how the recorder receives pulses.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Pulse
}

// Estimator converts a pulse width into energy.
type Estimator interface {
	Estimate(d time.Duration) (float64, error)
}

// Sonifier maps energy to a note.
type Sonifier interface {
	NoteFor(energy float64) model.Note
}

// Appender persists events in order.
type Appender interface {
	Append(ctx context.Context, e model.Event) error
}

// Publisher sends events off-board.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
}

// Worker processes pulses until its queue is drained.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown waits for Run to drain, stopping it early when ctx expires.
	Shutdown(ctx context.Context) error
}

// Stats is a snapshot of recorder counters.
type Stats struct {
	Recorded       int64     `json:"recorded"`
	EstimateErrors int64     `json:"estimate_errors"`
	StoreErrors    int64     `json:"store_errors"`
	PlaybackErrors int64     `json:"playback_errors"`
	PublishErrors  int64     `json:"publish_errors"`
	Clamped        int64     `json:"clamped"`
	LastEventAt    time.Time `json:"last_event_at,omitempty"`
}

// Recorder is the single consumer of the pulse queue. Running one recorder
// keeps event timestamps non-decreasing in the log.
type Recorder struct {
	queue     Queue
	estimator Estimator
	sonifier  Sonifier
	store     Appender

	recent     Appender
	players    []sonify.Player
	publishers []Publisher
	name       string

	lastMu sync.Mutex
	last   time.Time

	recorded       atomic.Int64
	estimateErrors atomic.Int64
	storeErrors    atomic.Int64
	playbackErrors atomic.Int64
	publishErrors  atomic.Int64
	clamped        atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewRecorder creates a recorder. store may be nil when only the recent
// cache and sinks are wanted.
func NewRecorder(queue Queue, estimator Estimator, sonifier Sonifier, store Appender, opts ...Option) *Recorder {
	r := &Recorder{
		queue:     queue,
		estimator: estimator,
		sonifier:  sonifier,
		store:     store,
		name:      "recorder",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.name != "recorder" {
		r.logger = r.logger.Named(r.name)
	}
	return r
}

// Run consumes pulses until the queue is closed and drained, ctx is done or
// Shutdown gives up waiting.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)

	pulses := r.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case p, ok := <-pulses:
			if !ok {
				return
			}
			if _, err := r.Process(ctx, p); err != nil {
				r.logger.Warn(ctx, "pulse dropped", logger.Duration("duration", p.Duration), logger.Error(err))
			}
		}
	}
}

// Shutdown waits for Run to return. Close the queue first so Run can drain.
func (r *Recorder) Shutdown(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.shutdownOnce.Do(func() { close(r.shutdown) })
		r.logger.Warn(ctx, "shutdown timed out before the queue drained")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process turns one pulse into an event and fans it out to every sink.
// Only estimation failures drop the pulse; sink failures are counted.
func (r *Recorder) Process(ctx context.Context, p model.Pulse) (model.Event, error) {
	energy, err := r.estimator.Estimate(p.Duration)
	if err != nil {
		r.estimateErrors.Add(1)
		metrics.RecordEstimateError()
		return model.Event{}, fmt.Errorf("estimate: %w", err)
	}
	note := r.sonifier.NoteFor(energy)
	ev := model.NewEvent(r.stamp(p.End), p.Duration, energy, note)

	if r.store != nil {
		if err := r.store.Append(ctx, ev); err != nil {
			r.storeErrors.Add(1)
			metrics.RecordStoreError()
			r.logger.Error(ctx, "store append failed", logger.String("id", ev.ID.String()), logger.Error(err))
		}
	}

	for _, pl := range r.players {
		if err := pl.Play(ctx, note); err != nil {
			r.playbackErrors.Add(1)
			metrics.RecordPlaybackError()
			r.logger.Warn(ctx, "playback failed", logger.String("note", note.Name), logger.Error(err))
		}
	}

	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			r.publishErrors.Add(1)
			r.logger.Warn(ctx, "publish failed", logger.String("id", ev.ID.String()), logger.Error(err))
		}
	}

	if r.recent != nil {
		if err := r.recent.Append(ctx, ev); err != nil {
			r.logger.Debug(ctx, "recent cache append failed", logger.Error(err))
		}
	}

	r.recorded.Add(1)
	metrics.RecordEvent(energy, note.MIDI, time.Since(p.End))
	r.logger.Info(ctx, "event recorded",
		logger.String("id", ev.ID.String()),
		logger.Time("timestamp", ev.Timestamp),
		logger.Float64("duration_s", ev.PulseDuration),
		logger.Float64("energy", ev.Energy),
		logger.String("note", note.Name),
		logger.Float64("frequency_hz", note.Frequency),
	)
	return ev, nil
}

// stamp returns the wall time of ts, raised to the previous stamp when the
// wall clock stepped back. The monotonic reading is stripped before comparing.
func (r *Recorder) stamp(ts time.Time) time.Time {
	ts = ts.Round(0)
	r.lastMu.Lock()
	defer r.lastMu.Unlock()
	if ts.Before(r.last) {
		ts = r.last
		r.clamped.Add(1)
		metrics.RecordTimestampClamped()
	}
	r.last = ts
	return ts
}

// Stats returns the current counters.
func (r *Recorder) Stats() Stats {
	r.lastMu.Lock()
	last := r.last
	r.lastMu.Unlock()
	return Stats{
		Recorded:       r.recorded.Load(),
		EstimateErrors: r.estimateErrors.Load(),
		StoreErrors:    r.storeErrors.Load(),
		PlaybackErrors: r.playbackErrors.Load(),
		PublishErrors:  r.publishErrors.Load(),
		Clamped:        r.clamped.Load(),
		LastEventAt:    last,
	}
}
