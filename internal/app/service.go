// Package service assembles the detector pipeline: signal line, pulse
// timer, queue, recorder and sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/parakeet/internal/adapters/archive"
	"github.com/okian/parakeet/internal/adapters/audio"
	"github.com/okian/parakeet/internal/adapters/downlink"
	"github.com/okian/parakeet/internal/adapters/line"
	eventqueue "github.com/okian/parakeet/internal/adapters/mq/queue"
	"github.com/okian/parakeet/internal/adapters/mq/worker"
	"github.com/okian/parakeet/internal/adapters/pulse"
	"github.com/okian/parakeet/internal/adapters/repository"
	"github.com/okian/parakeet/internal/config"
	"github.com/okian/parakeet/internal/domain/calibration"
	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/internal/domain/sonify"
	"github.com/okian/parakeet/internal/raysim"
	"github.com/okian/parakeet/pkg/logger"
	"github.com/okian/parakeet/pkg/metrics"
)

type closer interface {
	Close() error
}

// Service owns every pipeline component and their lifecycle.
type Service struct {
	cfg *config.Config

	mu sync.RWMutex

	line       pulse.Line
	timer      *pulse.Timer
	queue      *eventqueue.InMemoryQueue
	estimator  *calibration.Estimator
	sonifier   *sonify.Sonifier
	store      repository.Store
	recent     *repository.MemoryStore
	recorder   *worker.Recorder
	players    []sonify.Player
	playersSet bool
	publishers []worker.Publisher
	archiver   *archive.Uploader

	closers []closer

	timerCancel    context.CancelFunc
	recorderCancel context.CancelFunc
	timerDone      chan struct{}
	errs           chan error

	started   bool
	stopped   bool
	startedAt time.Time

	logger logger.Logger
}

// New constructs a Service from cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		errs:   make(chan error, 1),
		recent: repository.NewMemoryStore(repository.WithCapacity(cfg.RecentEvents)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the configured components and launches the timer and recorder.
// ctx bounds only the setup; the pipeline runs until Stop. A stopped service
// cannot be started again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting detector...")

	if err := s.open(ctx); err != nil {
		s.closeAll(ctx)
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	var recCtx, timerCtx context.Context
	recCtx, s.recorderCancel = context.WithCancel(runCtx)
	timerCtx, s.timerCancel = context.WithCancel(runCtx)

	go s.recorder.Run(recCtx)

	s.timerDone = make(chan struct{})
	go s.runTimer(timerCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "detector started",
		logger.String("line", s.cfg.LineSource),
		logger.String("store", s.cfg.Store),
		logger.String("calibration", s.estimator.Calibration().Kind()),
		logger.Int("queue_size", s.cfg.EventQueueSize),
		logger.Int("publishers", len(s.publishers)),
	)
	return nil
}

func (s *Service) open(ctx context.Context) error {
	cal, err := calibration.New(s.cfg.CalibrationKind, s.cfg.CalibrationScale, s.cfg.CalibrationOffset, s.cfg.CalibrationPoints)
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	s.estimator = calibration.NewEstimator(calibration.WithCalibration(cal))
	s.sonifier = sonify.New(
		sonify.WithReference(s.cfg.RefHz, s.cfg.RefEnergy),
		sonify.WithSemitonesPerE(s.cfg.SemitonesPerE),
		sonify.WithRange(s.cfg.NoteMin, s.cfg.NoteMax),
		sonify.WithQuantize(s.cfg.Quantize),
	)

	if err := s.openStore(ctx); err != nil {
		return err
	}
	last, hasLast, err := s.store.Last(ctx)
	if err != nil {
		return fmt.Errorf("read last event: %w", err)
	}
	if n := min(s.cfg.RecentEvents, s.store.Count(ctx)); n > 0 {
		evs, err := s.store.List(ctx, n)
		if err != nil {
			return fmt.Errorf("load recent events: %w", err)
		}
		s.recent.Seed(evs)
	}
	metrics.UpdateStoreRecords(s.store.Count(ctx))

	if err := s.openLine(); err != nil {
		return err
	}
	if err := s.openPlayers(); err != nil {
		return err
	}
	s.openDownlinks(ctx)
	if err := s.openArchive(); err != nil {
		return err
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.cfg.EventQueueSize))
	s.timer = pulse.NewTimer(s.line,
		pulse.WithPollInterval(s.cfg.PollInterval),
		pulse.WithMinPulse(s.cfg.MinPulse),
		pulse.WithMaxPulse(s.cfg.MaxPulse),
	)

	recOpts := []worker.Option{
		worker.WithPlayers(s.players...),
		worker.WithPublishers(s.publishers...),
		worker.WithRecent(s.recent),
	}
	if hasLast {
		recOpts = append(recOpts, worker.WithLastTimestamp(last.Timestamp))
	}
	s.recorder = worker.NewRecorder(s.queue, s.estimator, s.sonifier, s.store, recOpts...)
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		s.closers = append(s.closers, s.store)
		return nil
	}
	switch s.cfg.Store {
	case config.StoreMemory:
		s.store = repository.NewMemoryStore(repository.WithCapacity(s.cfg.RecentEvents))
	case config.StorePostgres:
		pg, err := repository.OpenPostgres(ctx, s.cfg.PostgresDSN)
		if err != nil {
			return err
		}
		s.store = pg
	default:
		fs, err := repository.OpenFile(s.cfg.LogPath)
		if err != nil {
			return err
		}
		s.store = fs
	}
	s.closers = append(s.closers, s.store)
	return nil
}

func (s *Service) openLine() error {
	if s.line == nil {
		switch s.cfg.LineSource {
		case config.LineFile:
			l, err := line.OpenFile(s.cfg.SignalFile)
			if err != nil {
				return err
			}
			s.line = l
		case config.LineSim:
			gen := raysim.NewGenerator(raysim.Bounds{
				MinGap:    s.cfg.SimMinGap,
				MaxGap:    s.cfg.SimMaxGap,
				MinEnergy: s.cfg.SimMinEnergy,
				MaxEnergy: s.cfg.SimMaxEnergy,
			}, s.cfg.SimSeed)
			s.line = line.NewSimLine(gen, time.Now)
		case config.LinePredefined:
			s.line = line.NewSimLine(raysim.NewSequence(raysim.Predefined()), time.Now)
		default:
			l, err := line.OpenGPIO(s.cfg.GPIOPin)
			if err != nil {
				return err
			}
			s.line = l
		}
	}
	if c, ok := s.line.(closer); ok {
		s.closers = append(s.closers, c)
	}
	return nil
}

func (s *Service) openPlayers() error {
	if s.playersSet {
		return nil
	}
	switch s.cfg.Player {
	case config.PlayerBuzzer:
		pin, err := line.LookupPin(s.cfg.BuzzerPin)
		if err != nil {
			return err
		}
		b, err := audio.NewBuzzer(pin, audio.WithBuzzDuration(s.cfg.BuzzDuration))
		if err != nil {
			return err
		}
		s.players = []sonify.Player{b}
		s.closers = append(s.closers, b)
	default:
		s.players = []sonify.Player{audio.NewLogPlayer()}
	}
	return nil
}

// openDownlinks connects the optional ground links. A link that cannot be
// reached at boot is skipped so the detector still records.
func (s *Service) openDownlinks(ctx context.Context) {
	if s.cfg.MQTTBroker != "" {
		p, err := downlink.DialMQTT(s.cfg.MQTTBroker, s.cfg.MQTTClientID, s.cfg.MQTTTopic)
		if err != nil {
			s.logger.Warn(ctx, "mqtt downlink disabled", logger.Error(err))
		} else {
			s.publishers = append(s.publishers, p)
			s.closers = append(s.closers, p)
		}
	}
	if brokers := s.cfg.KafkaBrokerList(); len(brokers) > 0 {
		p, err := downlink.NewKafka(brokers, s.cfg.KafkaTopic)
		if err != nil {
			s.logger.Warn(ctx, "kafka downlink disabled", logger.Error(err))
		} else {
			s.publishers = append(s.publishers, p)
			s.closers = append(s.closers, p)
		}
	}
}

func (s *Service) openArchive() error {
	if s.cfg.ArchiveEndpoint == "" {
		return nil
	}
	u, err := archive.Dial(s.cfg.ArchiveEndpoint, s.cfg.ArchiveAccessKey, s.cfg.ArchiveSecretKey,
		s.cfg.ArchiveSecure, s.cfg.ArchiveBucket)
	if err != nil {
		return err
	}
	s.archiver = u
	return nil
}

func (s *Service) runTimer(ctx context.Context) {
	defer close(s.timerDone)

	err := s.timer.Run(ctx, func(p model.Pulse) {
		if !s.queue.Enqueue(ctx, p) {
			s.logger.Warn(ctx, "pulse dropped, queue full", logger.Duration("duration", p.Duration))
		}
	})
	if err != nil {
		metrics.RecordLineError()
		s.logger.Error(ctx, "pulse timer stopped", logger.Error(err))
		select {
		case s.errs <- fmt.Errorf("%w: %w", ErrLineFailed, err):
		default:
		}
	}
}

// Errors delivers a fatal pipeline error, such as a failed signal line.
func (s *Service) Errors() <-chan error {
	return s.errs
}

// Stop halts the timer, lets the recorder drain the queue until ctx expires,
// closes every sink and archives the event log when an archive is configured.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	s.logger.Info(ctx, "stopping detector...")

	s.timerCancel()
	<-s.timerDone
	_ = s.queue.Close()

	var errs []error
	if err := s.recorder.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.recorderCancel()

	s.closeAll(ctx)
	if err := s.archiveLog(ctx); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.stopped = true
	st := s.recorder.Stats()
	s.logger.Info(ctx, "detector stopped",
		logger.Int("recorded", int(st.Recorded)),
		logger.Int("store_errors", int(st.StoreErrors)),
		logger.Duration("uptime", time.Since(s.startedAt)),
	)
	return errors.Join(errs...)
}

func (s *Service) closeAll(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn(ctx, "close failed", logger.Error(err))
		}
	}
	s.closers = nil
}

func (s *Service) archiveLog(ctx context.Context) error {
	fs, ok := s.store.(*repository.FileStore)
	if s.archiver == nil || !ok {
		return nil
	}
	if _, err := s.archiver.Upload(ctx, fs.Path()); err != nil {
		return fmt.Errorf("archive event log: %w", err)
	}
	return nil
}

// Events is the read side served over HTTP: the recent events cache.
func (s *Service) Events() *repository.MemoryStore {
	return s.recent
}

// SetCalibration swaps the energy calibration without restarting.
func (s *Service) SetCalibration(c calibration.Calibration) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.estimator == nil {
		return ErrNotStarted
	}
	if c == nil {
		return fmt.Errorf("%w: nil calibration", calibration.ErrUnknownKind)
	}
	s.estimator.SetCalibration(c)
	s.logger.Info(context.Background(), "calibration changed", logger.String("kind", c.Kind()))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"line_source": s.cfg.LineSource,
		"store":       s.cfg.Store,
		"queue_size":  s.cfg.EventQueueSize,
	}
	if s.estimator != nil {
		stats["calibration"] = s.estimator.Calibration().Kind()
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stored := s.store.Count(ctx)
		stats["uptime_s"] = time.Since(s.startedAt).Seconds()
		stats["queue_length"] = queueLen
		stats["stored_events"] = stored
		stats["pulses"] = s.timer.Stats()
		stats["recorder"] = s.recorder.Stats()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreRecords(stored)
	}
	return stats
}
