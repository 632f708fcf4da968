// Package line provides the signal sources the pulse timer watches.
package line

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/okian/parakeet/internal/domain/model"
)

// InitHost loads the periph drivers. Safe to call more than once.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("%w: %w", ErrHostInit, err)
	}
	return nil
}

// LookupPin initialises the host and finds a pin by name, e.g. "GPIO23".
func LookupPin(name string) (gpio.PinIO, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return p, nil
}

// GPIOLine reads the detector comparator output from an input pin.
type GPIOLine struct {
	pin gpio.PinIO
}

// OpenGPIO configures name as a pulled-down input with edge detection.
func OpenGPIO(name string) (*GPIOLine, error) {
	p, err := LookupPin(name)
	if err != nil {
		return nil, err
	}
	return NewGPIOLine(p)
}

// NewGPIOLine wraps an already looked-up pin.
func NewGPIOLine(p gpio.PinIO) (*GPIOLine, error) {
	if err := p.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", p, err)
	}
	return &GPIOLine{pin: p}, nil
}

// Read samples the pin.
func (l *GPIOLine) Read(_ context.Context) (model.Level, error) {
	if l.pin.Read() == gpio.High {
		return model.High, nil
	}
	return model.Low, nil
}

// WaitForEdge blocks until the pin changes or timeout elapses.
func (l *GPIOLine) WaitForEdge(timeout time.Duration) bool {
	return l.pin.WaitForEdge(timeout)
}

// String names the pin.
func (l *GPIOLine) String() string {
	return l.pin.String()
}

// Close releases the pin.
func (l *GPIOLine) Close() error {
	return l.pin.Halt()
}
