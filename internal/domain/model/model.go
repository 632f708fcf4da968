// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Level is a digital logic level on the signal line.
type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Pulse is one completed HIGH interval on the signal line.
type Pulse struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// NewPulse builds a pulse from its edges. Duration uses the monotonic
// reading when both times carry one.
func NewPulse(start, end time.Time) Pulse {
	return Pulse{Start: start, End: end, Duration: end.Sub(start)}
}

// Note is the musical rendering of an energy.
type Note struct {
	Frequency float64 `json:"frequency_hz"`
	MIDI      int     `json:"midi"`
	Name      string  `json:"name"`
	Rest      bool    `json:"rest,omitempty"`
}

// RestNote is the silent note used for non-positive energies.
var RestNote = Note{Name: "rest", Rest: true} //nolint:gochecknoglobals // immutable value

// Event is one detected cosmic-ray hit. Events are values and are never
// modified after NewEvent returns.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	PulseDuration float64   `json:"duration_s"`
	Energy        float64   `json:"energy"`
	Note          Note      `json:"note"`
}

// NewEvent assembles an event with a fresh random id.
func NewEvent(ts time.Time, pulse time.Duration, energy float64, note Note) Event {
	return Event{
		ID:            uuid.New(),
		Timestamp:     ts,
		PulseDuration: pulse.Seconds(),
		Energy:        energy,
		Note:          note,
	}
}

// Duration returns the pulse width as a time.Duration.
func (e Event) Duration() time.Duration {
	return time.Duration(e.PulseDuration * float64(time.Second))
}
