package dht11

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Pulse is one run of constant level on the data line.
type Pulse struct {
	Level    gpio.Level
	Duration time.Duration
}

// Timing holds the protocol timings used to trigger, capture and decode a
// frame.
type Timing struct {
	// PreHigh is how long the line is held high before the start signal.
	PreHigh time.Duration
	// StartLow is the start signal; the DHT11 needs at least 18ms.
	StartLow time.Duration
	// SampleWindow bounds the whole capture.
	SampleWindow time.Duration
	// IdleTimeout ends the capture once the line stops changing.
	IdleTimeout time.Duration
	// MaxPulses caps the number of recorded level runs.
	MaxPulses int

	// BitThreshold separates a short (0) from a long (1) data high.
	BitThreshold time.Duration
	// Adaptive ignores BitThreshold and splits at the midpoint between the
	// shortest and longest data high of the frame.
	Adaptive bool
	// MaxHigh and MaxLow reject stretched pulses.
	MaxHigh time.Duration
	MaxLow  time.Duration
}

// DefaultTiming is tuned for a DHT11 on a Raspberry Pi.
var DefaultTiming = Timing{
	PreHigh:      580 * time.Millisecond,
	StartLow:     20 * time.Millisecond,
	SampleWindow: 100 * time.Millisecond,
	IdleTimeout:  time.Millisecond,
	MaxPulses:    100,
	BitThreshold: 50 * time.Microsecond,
	MaxHigh:      90 * time.Microsecond,
	MaxLow:       70 * time.Microsecond,
}

// withDefaults fills zero fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming
	if t.PreHigh > 0 {
		d.PreHigh = t.PreHigh
	}
	if t.StartLow > 0 {
		d.StartLow = t.StartLow
	}
	if t.SampleWindow > 0 {
		d.SampleWindow = t.SampleWindow
	}
	if t.IdleTimeout > 0 {
		d.IdleTimeout = t.IdleTimeout
	}
	if t.MaxPulses > 0 {
		d.MaxPulses = t.MaxPulses
	}
	if t.BitThreshold > 0 {
		d.BitThreshold = t.BitThreshold
	}
	if t.MaxHigh > 0 {
		d.MaxHigh = t.MaxHigh
	}
	if t.MaxLow > 0 {
		d.MaxLow = t.MaxLow
	}
	d.Adaptive = t.Adaptive
	return d
}

// Sensor side timings from the DHT11 datasheet.
const (
	responseWait = 30 * time.Microsecond // 20-40us after release
	responseLow  = 80 * time.Microsecond
	responseHigh = 80 * time.Microsecond
	bitLow       = 50 * time.Microsecond
	zeroHigh     = 27 * time.Microsecond // 26-28us
	oneHigh      = 70 * time.Microsecond
	minStartLow  = 18 * time.Millisecond
)

// maxGlitch is the longest run before the response low that is still taken
// for the line settling after release.
const maxGlitch = 10 * time.Microsecond
