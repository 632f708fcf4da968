// Package audio makes notes audible: a GPIO buzzer for live events and
// WAV/MIDI renderers for flight logs.
package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/okian/parakeet/internal/domain/model"
	"github.com/okian/parakeet/pkg/logger"
)

// Buzzer sounds a piezo buzzer on an output pin once per note.
type Buzzer struct {
	pin      gpio.PinOut
	duration time.Duration
	log      logger.Logger

	mu sync.Mutex
}

// NewBuzzer drives pin LOW and returns a buzzer sounding 100ms per note.
func NewBuzzer(pin gpio.PinOut, opts ...BuzzerOption) (*Buzzer, error) {
	b := &Buzzer{
		pin:      pin,
		duration: defaultBuzzDuration,
		log:      logger.Get().Named("buzzer"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure %s as output: %w", pin, err)
	}
	return b, nil
}

// Play buzzes for the configured duration. Rests are silent. A cancelled
// context cuts the buzz short; the pin is always left LOW.
func (b *Buzzer) Play(ctx context.Context, note model.Note) error {
	if note.Rest {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("buzzer on: %w", err)
	}
	t := time.NewTimer(b.duration)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}
	if err := b.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("buzzer off: %w", err)
	}
	b.log.Debug(ctx, "buzzed", logger.String("note", note.Name), logger.Duration("duration", b.duration))
	return nil
}

// Close silences the buzzer and releases the pin.
func (b *Buzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pin.Out(gpio.Low); err != nil {
		return err
	}
	return b.pin.Halt()
}

// LogPlayer only logs notes. It stands in when no audio hardware is fitted.
type LogPlayer struct {
	log logger.Logger
}

// NewLogPlayer returns a player that logs at info level.
func NewLogPlayer() *LogPlayer {
	return &LogPlayer{log: logger.Get().Named("sonify")}
}

func (p *LogPlayer) Play(ctx context.Context, note model.Note) error {
	if note.Rest {
		p.log.Info(ctx, "rest")
		return nil
	}
	p.log.Info(ctx, "note",
		logger.String("name", note.Name),
		logger.Int("midi", note.MIDI),
		logger.Float64("frequency_hz", note.Frequency))
	return nil
}
