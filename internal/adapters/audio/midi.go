package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/okian/parakeet/internal/domain/model"
)

const ticksPerQuarter = 960

// WriteMIDI writes notes as a single track Standard MIDI File. Each note
// lasts the tone duration; rests advance time without sounding.
func WriteMIDI(w io.Writer, notes []model.Note, opts ...RenderOption) error {
	if len(notes) == 0 {
		return ErrNoNotes
	}
	c := newRenderConfig(opts)
	if c.tone <= 0 {
		return ErrBadDuration
	}

	length := ticks(c.tone, c.tempo)
	var (
		tr    smf.Track
		delta uint32
	)
	tr.Add(0, smf.MetaTempo(c.tempo))
	for _, n := range notes {
		if n.Rest || n.MIDI < 0 || n.MIDI > 127 {
			delta += length
			continue
		}
		key := uint8(n.MIDI)
		tr.Add(delta, midi.NoteOn(0, key, c.velocity))
		tr.Add(length, midi.NoteOff(0, key))
		delta = 0
	}
	tr.Close(delta)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add midi track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// WriteMIDIFile renders notes into a new file at path.
func WriteMIDIFile(path string, notes []model.Note, opts ...RenderOption) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteMIDI(f, notes, opts...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ticks converts d into MIDI ticks at bpm.
func ticks(d time.Duration, bpm float64) uint32 {
	quarter := time.Duration(float64(time.Minute) / bpm)
	return uint32(float64(d) / float64(quarter) * ticksPerQuarter)
}
