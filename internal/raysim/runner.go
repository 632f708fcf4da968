package raysim

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/logger"
)

// Setter drives a signal line.
type Setter interface {
	Set(level model.Level) error
}

// Run emits rays from src onto sig until ctx is cancelled or cfg.Count rays
// were sent. The line is always left LOW.
func Run(ctx context.Context, cfg *Config, src Source, sig Setter) (stats Stats, err error) {
	log := logger.Get().Named("ray-sim")
	stats.StartTime = time.Now()
	defer func() { stats.EndTime = time.Now() }()

	if err := sig.Set(model.Low); err != nil {
		return stats, fmt.Errorf("reset signal: %w", err)
	}
	log.Info(ctx, "simulating rays",
		logger.String("signal_file", cfg.SignalFile),
		logger.Int("count", cfg.Count),
		logger.Duration("min_gap", cfg.Bounds.MinGap),
		logger.Duration("max_gap", cfg.Bounds.MaxGap))

	for cfg.Count == 0 || stats.Rays < cfg.Count {
		ray := src.Next()
		if err := sleep(ctx, ray.Gap); err != nil {
			return stats, nil
		}

		if err := sig.Set(model.High); err != nil {
			return stats, fmt.Errorf("raise signal: %w", err)
		}
		err = sleep(ctx, ray.Width)
		if lerr := sig.Set(model.Low); lerr != nil {
			return stats, fmt.Errorf("lower signal: %w", lerr)
		}
		if err != nil {
			return stats, nil
		}

		stats.Rays++
		stats.TotalEnergy += ray.Energy
		stats.HighTime += ray.Width
		if cfg.Verbose {
			log.Info(ctx, "ray",
				logger.Float64("energy", ray.Energy),
				logger.Duration("duration", ray.Width))
		}
	}
	return stats, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
