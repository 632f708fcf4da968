// Package sonify maps particle energies onto musical notes.
package sonify

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/parakeet/internal/domain/model"
)

const (
	a4Hz  = 440.0
	a4Key = 69

	defaultRefHz         = 440.0
	defaultRefEnergy     = 1.0
	defaultSemitonesPerE = 1.0
	defaultNoteMin       = 21
	defaultNoteMax       = 108
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"} //nolint:gochecknoglobals // lookup table

// Player renders a note somewhere audible. Implementations must return
// promptly enough not to stall the recorder.
type Player interface {
	Play(ctx context.Context, note model.Note) error
}

// Option applies a configuration option to the Sonifier.
type Option func(*Sonifier)

// WithReference sets the frequency heard at the reference energy.
func WithReference(hz, energy float64) Option {
	return func(s *Sonifier) {
		if hz > 0 && energy > 0 {
			s.refHz = hz
			s.refEnergy = energy
		}
	}
}

// WithSemitonesPerE sets how many semitones one natural-log step of energy spans.
func WithSemitonesPerE(n float64) Option {
	return func(s *Sonifier) {
		if n > 0 && !math.IsInf(n, 1) {
			s.semitonesPerE = n
		}
	}
}

// WithRange limits MIDI keys to [lo, hi].
func WithRange(lo, hi int) Option {
	return func(s *Sonifier) {
		if lo >= 0 && hi <= 127 && lo <= hi {
			s.noteMin = lo
			s.noteMax = hi
		}
	}
}

// WithQuantize snaps frequencies to the equal-tempered key.
func WithQuantize(on bool) Option {
	return func(s *Sonifier) {
		s.quantize = on
	}
}

// Sonifier is a pure energy to note mapping. It holds no mutable state.
type Sonifier struct {
	refHz         float64
	refEnergy     float64
	semitonesPerE float64
	noteMin       int
	noteMax       int
	quantize      bool
}

// New creates a Sonifier whose defaults give f = 440 * 2^(ln(E)/12).
func New(opts ...Option) *Sonifier {
	s := &Sonifier{
		refHz:         defaultRefHz,
		refEnergy:     defaultRefEnergy,
		semitonesPerE: defaultSemitonesPerE,
		noteMin:       defaultNoteMin,
		noteMax:       defaultNoteMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NoteFor returns the note for energy. Non-positive or non-finite energies
// are rests.
func (s *Sonifier) NoteFor(energy float64) model.Note {
	if !(energy > 0) || math.IsInf(energy, 0) {
		return model.RestNote
	}
	semitones := math.Log(energy/s.refEnergy) * s.semitonesPerE
	freq := s.refHz * math.Pow(2, semitones/12)
	if math.IsNaN(freq) {
		return model.RestNote
	}
	// Frequencies stay within the key range, so the note is always finite.
	freq = max(KeyFrequency(s.noteMin), min(KeyFrequency(s.noteMax), freq))

	key := int(math.Round(a4Key + 12*math.Log2(freq/a4Hz)))
	key = max(s.noteMin, min(s.noteMax, key))
	if s.quantize {
		freq = KeyFrequency(key)
	}
	return model.Note{Frequency: freq, MIDI: key, Name: KeyName(key)}
}

// KeyFrequency is the equal-tempered frequency of a MIDI key.
func KeyFrequency(key int) float64 {
	return a4Hz * math.Pow(2, float64(key-a4Key)/12)
}

// KeyName spells a MIDI key with sharps, e.g. 69 -> "A4", 60 -> "C4".
func KeyName(key int) string {
	if key < 0 || key > 127 {
		return fmt.Sprintf("?%d", key)
	}
	return fmt.Sprintf("%s%d", noteNames[key%12], key/12-1)
}
