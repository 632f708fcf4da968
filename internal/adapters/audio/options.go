package audio

import (
	"time"

	"github.com/okian/parakeet/pkg/logger"
)

const (
	defaultBuzzDuration = 100 * time.Millisecond
	defaultToneDuration = 500 * time.Millisecond
	defaultSampleRate   = 44100
	defaultTempoBPM     = 120
)

// BuzzerOption applies a configuration option to the Buzzer.
type BuzzerOption func(*Buzzer)

// WithBuzzDuration sets how long the buzzer sounds per note.
func WithBuzzDuration(d time.Duration) BuzzerOption {
	return func(b *Buzzer) {
		if d > 0 {
			b.duration = d
		}
	}
}

// WithBuzzerLogger sets the buzzer's logger.
func WithBuzzerLogger(l logger.Logger) BuzzerOption {
	return func(b *Buzzer) {
		if l != nil {
			b.log = l
		}
	}
}

// RenderOption configures offline WAV and MIDI rendering.
type RenderOption func(*renderConfig)

type renderConfig struct {
	tone       time.Duration
	sampleRate int
	tempo      float64
	amplitude  float64
	velocity   uint8
}

func newRenderConfig(opts []RenderOption) renderConfig {
	c := renderConfig{
		tone:       defaultToneDuration,
		sampleRate: defaultSampleRate,
		tempo:      defaultTempoBPM,
		amplitude:  0.5,
		velocity:   100,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithToneDuration sets the length of each rendered note.
func WithToneDuration(d time.Duration) RenderOption {
	return func(c *renderConfig) {
		c.tone = d
	}
}

// WithSampleRate sets the WAV sample rate in Hz.
func WithSampleRate(hz int) RenderOption {
	return func(c *renderConfig) {
		if hz > 0 {
			c.sampleRate = hz
		}
	}
}

// WithTempo sets the MIDI tempo in beats per minute.
func WithTempo(bpm float64) RenderOption {
	return func(c *renderConfig) {
		if bpm > 0 {
			c.tempo = bpm
		}
	}
}
