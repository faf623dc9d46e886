// Package dht11 reads a DHT11 humidity and temperature sensor by bit-banging
// its single data line.
//
// The DHT11 has no clock line: bits are encoded in the width of high pulses
// (about 27us for a 0, 70us for a 1). The host must watch the line with a
// busy loop, so anything that takes the CPU away mid-frame (scheduler
// preemption, garbage collection) stretches or swallows pulses and the read
// fails. Read never retries; callers decide whether to try again.
package dht11

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"
	"periph.io/x/conn/v3/gpio"
)

// DefaultMinInterval is the shortest spacing between two conversions the
// DHT11 tolerates.
const DefaultMinInterval = time.Second

// Options configures a Sensor. The zero value is usable.
type Options struct {
	// Timing overrides DefaultTiming field by field; zero fields keep the default.
	Timing Timing
	// MinInterval is the minimum spacing between reads, DefaultMinInterval if zero.
	MinInterval time.Duration
	// DisableGC turns the garbage collector off for the duration of the capture.
	DisableGC bool
	// LockThread pins the reading goroutine to its OS thread during the capture.
	LockThread bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Sensor is a DHT11 on one GPIO line. It owns the line exclusively and is not
// safe for concurrent use.
type Sensor struct {
	pin        gpio.PinIO
	timing     Timing
	limiter    *rate.Limiter
	disableGC  bool
	lockThread bool
	logger     *slog.Logger
	clock      clock

	lastTrace []Pulse
}

// New prepares pin for the sensor and parks the line high.
func New(pin gpio.PinIO, opts Options) (*Sensor, error) {
	return newSensor(pin, opts, wallClock{})
}

func newSensor(pin gpio.PinIO, opts Options, clk clock) (*Sensor, error) {
	if pin == nil {
		return nil, errors.New("dht11: pin is nil")
	}
	interval := opts.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// set pin to high so ready for first read
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dht11: pin %s out high: %w", pin.Name(), err)
	}

	return &Sensor{
		pin:        pin,
		timing:     opts.Timing.withDefaults(),
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		disableGC:  opts.DisableGC,
		lockThread: opts.LockThread,
		logger:     logger.With("pin", pin.Name()),
		clock:      clk,
	}, nil
}

// Read performs one conversion. It blocks until the minimum read spacing has
// passed, then for roughly PreHigh+StartLow plus the frame itself. ctx only
// bounds the wait before the start signal.
//
// On failure the returned Reading is invalid and the error wraps ErrTimeout,
// ErrMalformed, ErrChecksum or the GPIO driver error. If the wait for the
// read slot fails, either because ctx is done or because its deadline falls
// before the slot, the error wraps ErrNotReady and the context error.
func (s *Sensor) Read(ctx context.Context) (Reading, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	trace, err := s.capture()
	if err != nil {
		return Reading{}, err
	}
	s.lastTrace = trace

	r, err := Decode(trace, s.timing)
	if err != nil {
		s.logger.Debug("decode failed", "pulses", len(trace), "error", err)
		return Reading{}, err
	}
	s.logger.Debug("decoded", "pulses", len(trace), "humidity", r.RelativeHumidity(), "temperature", r.Celsius())
	return r, nil
}

// LastTrace returns a copy of the pulses captured by the most recent read.
func (s *Sensor) LastTrace() []Pulse {
	return append([]Pulse(nil), s.lastTrace...)
}

// Pin returns the line the sensor is attached to.
func (s *Sensor) Pin() gpio.PinIO {
	return s.pin
}

// capture sends the start signal and records the sensor's answer.
func (s *Sensor) capture() ([]Pulse, error) {
	t := s.timing

	if err := s.pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dht11: pin out high: %w", err)
	}
	s.clock.Sleep(t.PreHigh)

	if s.lockThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	// send start low
	if err := s.pin.Out(gpio.Low); err != nil {
		_ = s.pin.Out(gpio.High)
		return nil, fmt.Errorf("dht11: pin out low: %w", err)
	}
	s.clock.Sleep(t.StartLow)

	// disable garbage collection during critical timing part
	var gcPercent int
	if s.disableGC {
		gcPercent = debug.SetGCPercent(-1)
	}
	// release the line, the pull-up takes it high
	var trace []Pulse
	err := s.pin.In(gpio.PullUp, gpio.NoEdge)
	if err == nil {
		trace = sample(s.pin, s.clock, t)
	}
	if s.disableGC {
		debug.SetGCPercent(gcPercent)
	}
	if err != nil {
		_ = s.pin.Out(gpio.High)
		return nil, fmt.Errorf("dht11: pin in: %w", err)
	}

	// set pin to high so ready for next time
	if err := s.pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dht11: pin out high: %w", err)
	}
	return trace, nil
}

// sample busy-polls the line and records each level run. It stops when the
// line has been quiet for IdleTimeout, SampleWindow has elapsed, or MaxPulses
// runs were recorded. The last run is always closed and included.
func sample(pin gpio.PinIO, clk clock, t Timing) []Pulse {
	trace := make([]Pulse, 0, t.MaxPulses)
	start := clk.Now()
	edge := start
	level := pin.Read()
	for len(trace) < t.MaxPulses-1 {
		now := clk.Now()
		if now.Sub(start) > t.SampleWindow || now.Sub(edge) > t.IdleTimeout {
			break
		}
		l := pin.Read()
		if l == level {
			continue
		}
		now = clk.Now()
		trace = append(trace, Pulse{Level: level, Duration: now.Sub(edge)})
		level, edge = l, now
	}
	return append(trace, Pulse{Level: level, Duration: clk.Now().Sub(edge)})
}
