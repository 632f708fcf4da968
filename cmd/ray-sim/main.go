package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/parakeet/internal/adapters/line"
	"github.com/okian/parakeet/internal/raysim"
	"github.com/okian/parakeet/pkg/logger"
)

func main() {
	defaults := raysim.DefaultBounds()
	var (
		signalFile = flag.String("signal", "ray_signal.txt", "Signal file polled by the daemon")
		count      = flag.Int("count", 0, "Number of rays to emit, 0 for no limit")
		minGap     = flag.Duration("min-gap", defaults.MinGap, "Shortest pause between rays")
		maxGap     = flag.Duration("max-gap", defaults.MaxGap, "Longest pause between rays")
		minEnergy  = flag.Float64("min-energy", defaults.MinEnergy, "Lowest simulated energy")
		maxEnergy  = flag.Float64("max-energy", defaults.MaxEnergy, "Highest simulated energy")
		seed       = flag.Int64("seed", 0, "Random seed, 0 for time based")
		predefined = flag.Bool("predefined", false, "Replay the fixed reference sequence instead of random rays")
		verbose    = flag.Bool("verbose", false, "Log every ray")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		raysim.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &raysim.Config{
		SignalFile: *signalFile,
		Bounds: raysim.Bounds{
			MinGap:    *minGap,
			MaxGap:    *maxGap,
			MinEnergy: *minEnergy,
			MaxEnergy: *maxEnergy,
		},
		Count:   *count,
		Seed:    *seed,
		Verbose: *verbose,
	}
	var src raysim.Source = raysim.NewGenerator(cfg.Bounds, cfg.Seed)
	if *predefined {
		src = raysim.NewSequence(raysim.Predefined())
	}
	if err := simulate(ctx, cfg, src); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
}

func simulate(ctx context.Context, cfg *raysim.Config, src raysim.Source) error {
	sig, err := line.OpenFile(cfg.SignalFile)
	if err != nil {
		return err
	}
	defer func() { _ = sig.Close() }()

	stats, err := raysim.Run(ctx, cfg, src, sig)
	logger.Get().Info(ctx, "simulation finished",
		logger.Int("rays", stats.Rays),
		logger.Float64("total_energy", stats.TotalEnergy),
		logger.Duration("high_time", stats.HighTime),
		logger.Duration("elapsed", stats.EndTime.Sub(stats.StartTime)))
	return err
}
