package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/parakeet/internal/adapters/archive"
	"github.com/okian/parakeet/internal/adapters/audio"
	"github.com/okian/parakeet/internal/adapters/repository"
	"github.com/okian/parakeet/internal/config"
	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/internal/domain/sonify"
	"github.com/okian/parakeet/pkg/logger"
)

type options struct {
	logPath  string
	wavPath  string
	midiPath string
	renote   bool
	upload   bool
	cfg      *config.Config
}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	opts := options{cfg: cfg}
	flag.StringVar(&opts.logPath, "log", cfg.LogPath, "Event log to render")
	flag.StringVar(&opts.wavPath, "wav", "parakeet.wav", "WAV output, empty to skip")
	flag.StringVar(&opts.midiPath, "midi", "parakeet.mid", "MIDI output, empty to skip")
	flag.BoolVar(&opts.renote, "renote", false, "Recompute notes from energies with the current sonification settings")
	flag.BoolVar(&opts.upload, "upload", false, "Upload the rendered files to the archive bucket")
	flag.Parse()

	if err := render(ctx, opts); err != nil {
		logger.Get().Error(ctx, "render failed", logger.Error(err))
		os.Exit(1)
	}
}

func render(ctx context.Context, o options) error {
	log := logger.Get().Named("sonify")

	f, err := os.Open(o.logPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	events, skipped, err := repository.ReadLog(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}
	if skipped > 0 {
		log.Warn(ctx, "skipped unreadable rows", logger.Int("skipped", skipped))
	}

	notes := notesFor(events, o.cfg, o.renote)
	log.Info(ctx, "rendering", logger.String("log", o.logPath), logger.Int("events", len(events)))

	renderOpts := []audio.RenderOption{
		audio.WithToneDuration(o.cfg.ToneDuration),
		audio.WithSampleRate(o.cfg.SampleRate),
	}
	var outputs []string
	if o.wavPath != "" {
		if err := audio.WriteWAVFile(o.wavPath, notes, renderOpts...); err != nil {
			return fmt.Errorf("write wav: %w", err)
		}
		outputs = append(outputs, o.wavPath)
	}
	if o.midiPath != "" {
		if err := audio.WriteMIDIFile(o.midiPath, notes, renderOpts...); err != nil {
			return fmt.Errorf("write midi: %w", err)
		}
		outputs = append(outputs, o.midiPath)
	}

	if !o.upload || len(outputs) == 0 {
		return nil
	}
	up, err := archive.Dial(o.cfg.ArchiveEndpoint, o.cfg.ArchiveAccessKey, o.cfg.ArchiveSecretKey,
		o.cfg.ArchiveSecure, o.cfg.ArchiveBucket)
	if err != nil {
		return err
	}
	for _, p := range outputs {
		key, err := up.Upload(ctx, p)
		if err != nil {
			return err
		}
		log.Info(ctx, "uploaded", logger.String("key", key))
	}
	return nil
}

// notesFor returns the logged notes. Rows without a note (legacy logs), or
// every row when renote is set, are computed from the energy.
func notesFor(events []model.Event, cfg *config.Config, renote bool) []model.Note {
	s := sonify.New(
		sonify.WithReference(cfg.RefHz, cfg.RefEnergy),
		sonify.WithSemitonesPerE(cfg.SemitonesPerE),
		sonify.WithRange(cfg.NoteMin, cfg.NoteMax),
		sonify.WithQuantize(cfg.Quantize),
	)
	notes := make([]model.Note, len(events))
	for i, e := range events {
		if renote || e.Note.Name == "" {
			notes[i] = s.NoteFor(e.Energy)
			continue
		}
		notes[i] = e.Note
	}
	return notes
}
