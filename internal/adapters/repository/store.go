// Package repository persists detected events.
package repository

import (
	"context"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
)

// Store is an append-only event log.
type Store interface {
	// Append persists e. Events must arrive with non-decreasing timestamps;
	// otherwise ErrOutOfOrder is returned and nothing is written.
	Append(ctx context.Context, e model.Event) error

	// List returns up to limit of the most recent events, oldest first.
	List(ctx context.Context, limit int) ([]model.Event, error)

	// Last returns the newest event, if any.
	Last(ctx context.Context) (model.Event, bool, error)

	// Count returns the number of events held.
	Count(ctx context.Context) int

	Close() error
}

// tail returns the last n events of evs.
func tail(evs []model.Event, n int) []model.Event {
	if n >= len(evs) {
		return evs
	}
	return evs[len(evs)-n:]
}

// before compares wall clock readings, the only time the log keeps.
func before(a, b time.Time) bool {
	return a.Round(0).Before(b.Round(0))
}
