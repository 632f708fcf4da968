// Package calibration converts pulse widths into particle energies.
package calibration

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kinds accepted by New.
const (
	KindLinear   = "linear"
	KindIdentity = "identity"
	KindTable    = "table"
)

// Calibration maps a pulse width to an energy in its own unit.
type Calibration interface {
	Energy(d time.Duration) float64
	Kind() string
}

// Func adapts a plain function to Calibration.
type Func func(d time.Duration) float64

// Energy calls f.
func (f Func) Energy(d time.Duration) float64 { return f(d) }

// Kind reports "func".
func (Func) Kind() string { return "func" }

// Linear is energy = Scale*seconds + Offset.
type Linear struct {
	Scale  float64
	Offset float64
}

func (l Linear) Energy(d time.Duration) float64 { return l.Scale*d.Seconds() + l.Offset }
func (Linear) Kind() string                    { return KindLinear }

// Identity reports one energy unit per second of pulse.
type Identity struct{}

func (Identity) Energy(d time.Duration) float64 { return d.Seconds() }
func (Identity) Kind() string                    { return KindIdentity }

// Point is one measured (duration, energy) pair.
type Point struct {
	Duration time.Duration
	Energy   float64
}

// Table interpolates linearly between points and clamps outside them.
type Table struct {
	points []Point
}

// NewTable sorts points by duration. At least one point is required and
// durations must be distinct.
func NewTable(points []Point) (*Table, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: table needs at least one point", ErrInvalidPoints)
	}
	ps := append([]Point(nil), points...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Duration < ps[j].Duration })
	for i := 1; i < len(ps); i++ {
		if ps[i].Duration == ps[i-1].Duration {
			return nil, fmt.Errorf("%w: duplicate duration %s", ErrInvalidPoints, ps[i].Duration)
		}
	}
	return &Table{points: ps}, nil
}

func (t *Table) Kind() string { return KindTable }

func (t *Table) Energy(d time.Duration) float64 {
	ps := t.points
	if d <= ps[0].Duration {
		return ps[0].Energy
	}
	last := ps[len(ps)-1]
	if d >= last.Duration {
		return last.Energy
	}
	i := sort.Search(len(ps), func(i int) bool { return ps[i].Duration >= d })
	lo, hi := ps[i-1], ps[i]
	frac := float64(d-lo.Duration) / float64(hi.Duration-lo.Duration)
	return lo.Energy + frac*(hi.Energy-lo.Energy)
}

// ParsePoints reads "seconds:energy" pairs separated by commas,
// e.g. "0.01:1e4,0.1:1e5".
func ParsePoints(s string) ([]Point, error) {
	var out []Point
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		ds, es, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q lacks ':'", ErrInvalidPoints, pair)
		}
		secs, err := strconv.ParseFloat(strings.TrimSpace(ds), 64)
		if err != nil || secs < 0 {
			return nil, fmt.Errorf("%w: bad duration in %q", ErrInvalidPoints, pair)
		}
		e, err := strconv.ParseFloat(strings.TrimSpace(es), 64)
		if err != nil || e < 0 {
			return nil, fmt.Errorf("%w: bad energy in %q", ErrInvalidPoints, pair)
		}
		out = append(out, Point{Duration: time.Duration(secs * float64(time.Second)), Energy: e})
	}
	return out, nil
}

// New builds a calibration by kind. scale and offset apply to linear,
// points to table.
func New(kind string, scale, offset float64, points string) (Calibration, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindLinear, "":
		return Linear{Scale: scale, Offset: offset}, nil
	case KindIdentity:
		return Identity{}, nil
	case KindTable:
		ps, err := ParsePoints(points)
		if err != nil {
			return nil, err
		}
		return NewTable(ps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
