package service

import (
	"github.com/okian/parakeet/internal/adapters/mq/worker"
	"github.com/okian/parakeet/internal/adapters/pulse"
	"github.com/okian/parakeet/internal/adapters/repository"
	"github.com/okian/parakeet/internal/domain/sonify"
	"github.com/okian/parakeet/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLine replaces the configured signal source.
func WithLine(l pulse.Line) Option {
	return func(s *Service) {
		s.line = l
	}
}

// WithStore replaces the configured event store. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithPlayers replaces the configured playback sinks.
func WithPlayers(players ...sonify.Player) Option {
	return func(s *Service) {
		s.players = players
		s.playersSet = true
	}
}

// WithPublishers adds downlink sinks on top of the configured ones.
func WithPublishers(pubs ...worker.Publisher) Option {
	return func(s *Service) {
		s.publishers = append(s.publishers, pubs...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
