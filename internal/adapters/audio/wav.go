package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/okian/parakeet/internal/domain/model"
)

const (
	bitDepth     = 16
	pcmFormat    = 1
	maxAmplitude = math.MaxInt16
)

// WriteWAV renders one sine tone per note, back to back, as 16-bit mono
// PCM. Rests render as silence of the same length.
func WriteWAV(w io.WriteSeeker, notes []model.Note, opts ...RenderOption) error {
	if len(notes) == 0 {
		return ErrNoNotes
	}
	c := newRenderConfig(opts)
	if c.tone <= 0 {
		return ErrBadDuration
	}

	enc := wav.NewEncoder(w, c.sampleRate, bitDepth, 1, pcmFormat)
	perTone := int(c.tone.Seconds() * float64(c.sampleRate))
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: c.sampleRate},
		Data:           make([]int, perTone),
		SourceBitDepth: bitDepth,
	}
	for _, n := range notes {
		fillTone(buf.Data, n, c)
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// WriteWAVFile renders notes into a new file at path.
func WriteWAVFile(path string, notes []model.Note, opts ...RenderOption) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteWAV(f, notes, opts...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func fillTone(dst []int, n model.Note, c renderConfig) {
	if n.Rest || n.Frequency <= 0 {
		clear(dst)
		return
	}
	step := 2 * math.Pi * n.Frequency / float64(c.sampleRate)
	for i := range dst {
		dst[i] = int(c.amplitude * maxAmplitude * math.Sin(step*float64(i)))
	}
}
