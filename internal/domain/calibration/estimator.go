package calibration

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Default calibration: the flight software's placeholder of one mega-unit per second.
const defaultScale = 1e6

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithCalibration sets the initial calibration.
func WithCalibration(c Calibration) Option {
	return func(e *Estimator) {
		if c != nil {
			e.cal.Store(&holder{c})
		}
	}
}

type holder struct{ Calibration }

// Estimator turns pulse widths into energies through a swappable calibration.
// It is safe for concurrent use.
type Estimator struct {
	cal atomic.Pointer[holder]
}

// NewEstimator creates an estimator, linear with scale 1e6 unless overridden.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{}
	e.cal.Store(&holder{Linear{Scale: defaultScale}})
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the energy for a pulse of width d.
func (e *Estimator) Estimate(d time.Duration) (float64, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}
	c := e.cal.Load().Calibration
	energy := c.Energy(d)
	if math.IsNaN(energy) || math.IsInf(energy, 0) || energy < 0 {
		return 0, fmt.Errorf("%w: %s gave %v for %s", ErrInvalidEnergy, c.Kind(), energy, d)
	}
	return energy, nil
}

// SetCalibration swaps the calibration; in-flight estimates finish with the old one.
func (e *Estimator) SetCalibration(c Calibration) {
	if c == nil {
		return
	}
	e.cal.Store(&holder{c})
}

// Calibration returns the active calibration.
func (e *Estimator) Calibration() Calibration {
	return e.cal.Load().Calibration
}
