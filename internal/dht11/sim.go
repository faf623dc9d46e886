package dht11

import (
	"math/rand/v2"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// SimOptions configures a SimPin.
type SimOptions struct {
	// Preempt is the probability that a single Read of the line stalls the
	// caller for PreemptFor, the way a busy scheduler would.
	Preempt    float64
	PreemptFor time.Duration
	// Seed makes the stalls reproducible.
	Seed uint64
}

// SimPin is a gpio.PinIO with a simulated DHT11 attached. After a start
// signal of at least 18ms it answers with the frame set by SetFrame, timed
// against the wall clock.
type SimPin struct {
	gpiotest.Pin

	mu       sync.Mutex
	clock    clock
	opts     SimOptions
	rnd      *rand.Rand
	trace    []Pulse
	level    gpio.Level
	output   bool
	lowSince time.Time
	released time.Time
	armed    bool
}

// NewSimPin returns a simulated line reporting r.
func NewSimPin(name string, r Reading, opts SimOptions) *SimPin {
	return newSimPin(name, NewFrame(r.Humidity, r.HumidityFrac, r.Temperature, r.TemperatureFrac), opts, wallClock{})
}

func newSimPin(name string, f Frame, opts SimOptions, clk clock) *SimPin {
	if opts.PreemptFor <= 0 {
		opts.PreemptFor = 200 * time.Microsecond
	}
	return &SimPin{
		Pin:   gpiotest.Pin{N: name},
		clock: clk,
		opts:  opts,
		rnd:   rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		trace: Encode(f),
		level: gpio.High,
	}
}

// SetFrame changes the frame sent on the next conversion. The frame is sent
// as is, so an invalid checksum can be simulated.
func (p *SimPin) SetFrame(f Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trace = Encode(f)
}

// SetTrace replaces the answer with an arbitrary pulse train.
func (p *SimPin) SetTrace(trace []Pulse) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trace = append([]Pulse(nil), trace...)
}

// Out drives the line.
func (p *SimPin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l == gpio.Low && (!p.output || p.level == gpio.High) {
		p.lowSince = p.clock.Now()
	}
	p.level, p.output, p.armed = l, true, false
	return nil
}

// In releases the line. A release after a long enough low starts the answer.
func (p *SimPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	if p.output && p.level == gpio.Low && now.Sub(p.lowSince) >= minStartLow {
		p.armed, p.released = true, now
	}
	p.output = false
	p.level = gpio.High
	return nil
}

// Read samples the line.
func (p *SimPin) Read() gpio.Level {
	if p.opts.Preempt > 0 && p.rnd.Float64() < p.opts.Preempt {
		p.clock.Sleep(p.opts.PreemptFor)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output || !p.armed {
		return p.level
	}
	offset := p.clock.Now().Sub(p.released)
	for _, pulse := range p.trace {
		if offset < pulse.Duration {
			return pulse.Level
		}
		offset -= pulse.Duration
	}
	// frame sent, the pull-up holds the line
	return gpio.High
}

// Function reports the current direction.
func (p *SimPin) Function() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output {
		return "Out/" + p.level.String()
	}
	return "In/" + p.level.String()
}
