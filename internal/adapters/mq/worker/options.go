package worker

import (
	"time"

	"github.com/okian/parakeet/internal/domain/sonify"
	"github.com/okian/parakeet/pkg/logger"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithName sets the recorder name for identification and logging.
func WithName(name string) Option {
	return func(r *Recorder) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger for the recorder.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPlayers adds playback sinks, called in order for every event.
func WithPlayers(players ...sonify.Player) Option {
	return func(r *Recorder) {
		for _, p := range players {
			if p != nil {
				r.players = append(r.players, p)
			}
		}
	}
}

// WithPublishers adds downlink sinks.
func WithPublishers(pubs ...Publisher) Option {
	return func(r *Recorder) {
		for _, p := range pubs {
			if p != nil {
				r.publishers = append(r.publishers, p)
			}
		}
	}
}

// WithRecent sets the cache that backs the HTTP event feed.
func WithRecent(a Appender) Option {
	return func(r *Recorder) {
		r.recent = a
	}
}

// WithLastTimestamp seeds the clamp with the newest stored event so a
// restarted daemon keeps the log ordered.
func WithLastTimestamp(ts time.Time) Option {
	return func(r *Recorder) {
		r.last = ts.Round(0)
	}
}
