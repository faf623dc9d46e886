package dht11

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// frameBits is the number of data bits in a DHT11 frame.
const frameBits = 40

// Decode turns a captured trace into a Reading.
func Decode(trace []Pulse, timing Timing) (Reading, error) {
	bits, err := Bits(trace, timing)
	if err != nil {
		return Reading{}, err
	}
	return frameFromBits(bits).Reading()
}

// Bits extracts the 40 data bits from a trace, most significant bit of the
// first byte first.
//
// The trace is expected to start with the released line (high, optional),
// then the sensor response low and response high, then 40 pairs of
// separator low and data high, then the closing low. Runs shorter than
// maxGlitch before the response low are the line settling and are skipped.
// A data high only counts once another pulse follows it; a trailing high is
// the idle line.
func Bits(trace []Pulse, timing Timing) ([]bool, error) {
	timing = timing.withDefaults()

	// skip the released line until the sensor pulls low
	first := 0
	for first < len(trace) && (trace[first].Level == gpio.High || trace[first].Duration < maxGlitch) {
		first++
	}
	// response low and response high
	start := first + 2

	// count complete (low, high) pairs before looking at levels or durations
	// so that a short trace is always a timeout
	n := 0
	if rest := len(trace) - start - 1; rest > 0 {
		n = min(rest/2, frameBits)
	}
	if n < frameBits {
		return nil, fmt.Errorf("%w: got %d of %d data bits", ErrTimeout, n, frameBits)
	}

	// from the response low through the closing low
	for i := first + 1; i <= start+2*frameBits; i++ {
		if trace[i].Level == trace[i-1].Level {
			return nil, fmt.Errorf("%w: pulse %d repeats level %v", ErrMalformed, i, trace[i].Level)
		}
	}

	highs := make([]time.Duration, 0, frameBits)
	for i := start; len(highs) < frameBits; i += 2 {
		low, high := trace[i], trace[i+1]
		if low.Duration > timing.MaxLow {
			return nil, fmt.Errorf("%w: bit %d low lasted %v", ErrMalformed, len(highs), low.Duration)
		}
		if high.Duration > timing.MaxHigh {
			return nil, fmt.Errorf("%w: bit %d high lasted %v", ErrMalformed, len(highs), high.Duration)
		}
		highs = append(highs, high.Duration)
	}

	threshold := timing.BitThreshold
	if timing.Adaptive {
		threshold = midpoint(highs)
	}
	bits := make([]bool, frameBits)
	for i, d := range highs {
		bits[i] = d > threshold
	}
	return bits, nil
}

// midpoint is halfway between the shortest and longest duration.
func midpoint(ds []time.Duration) time.Duration {
	shortest, longest := ds[0], ds[0]
	for _, d := range ds[1:] {
		shortest = min(shortest, d)
		longest = max(longest, d)
	}
	return shortest + (longest-shortest)/2
}

func frameFromBits(bits []bool) Frame {
	var f Frame
	for i, b := range bits[:frameBits] {
		f[i/8] <<= 1
		if b {
			f[i/8] |= 1
		}
	}
	return f
}

// Encode returns the trace a healthy DHT11 produces for f, starting at the
// moment the host releases the line and ending with the closing low.
func Encode(f Frame) []Pulse {
	trace := make([]Pulse, 0, 4+2*frameBits)
	trace = append(trace,
		Pulse{gpio.High, responseWait},
		Pulse{gpio.Low, responseLow},
		Pulse{gpio.High, responseHigh},
	)
	for _, b := range f {
		for bit := 7; bit >= 0; bit-- {
			high := zeroHigh
			if b&(1<<bit) != 0 {
				high = oneHigh
			}
			trace = append(trace, Pulse{gpio.Low, bitLow}, Pulse{gpio.High, high})
		}
	}
	return append(trace, Pulse{gpio.Low, bitLow})
}
