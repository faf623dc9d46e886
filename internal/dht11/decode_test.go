package dht11

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

func TestDecode_SyntheticTrace(t *testing.T) {
	trace := Encode(NewFrame(45, 0, 23, 0))

	for i := 0; i < 3; i++ {
		r, err := Decode(trace, DefaultTiming)
		require.NoError(t, err)
		assert.True(t, r.Valid)
		assert.Equal(t, uint8(45), r.Humidity)
		assert.Equal(t, uint8(23), r.Temperature)
		assert.Equal(t, uint8(68), r.Checksum)
	}
}

func TestDecode_Fractions(t *testing.T) {
	r, err := Decode(Encode(NewFrame(52, 3, 19, 7)), DefaultTiming)
	require.NoError(t, err)
	assert.InDelta(t, 52.3, r.RelativeHumidity(), 1e-9)
	assert.InDelta(t, 19.7, r.Celsius(), 1e-9)
	assert.InDelta(t, 67.46, r.Fahrenheit(), 1e-9)
}

func TestDecode_WithoutLeadingHigh(t *testing.T) {
	trace := Encode(NewFrame(30, 0, 25, 0))[1:]
	r, err := Decode(trace, DefaultTiming)
	require.NoError(t, err)
	assert.Equal(t, uint8(30), r.Humidity)
	assert.Equal(t, uint8(25), r.Temperature)
}

func TestDecode_SettlingGlitchSkipped(t *testing.T) {
	full := Encode(NewFrame(38, 0, 22, 0))

	tests := []struct {
		name  string
		trace []Pulse
	}{
		{
			name:  "low right after release",
			trace: append([]Pulse{{gpio.Low, 2 * time.Microsecond}}, full...),
		},
		{
			name: "dip inside the released high",
			trace: append([]Pulse{
				{gpio.High, 10 * time.Microsecond},
				{gpio.Low, 3 * time.Microsecond},
				{gpio.High, 20 * time.Microsecond},
			}, full[1:]...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.trace, DefaultTiming)
			require.NoError(t, err)
			assert.Equal(t, uint8(38), r.Humidity)
			assert.Equal(t, uint8(22), r.Temperature)
		})
	}
}

func TestDecode_PulsesAfterClosingLowIgnored(t *testing.T) {
	trace := append(Encode(NewFrame(40, 0, 21, 0)), Pulse{gpio.Low, time.Millisecond})
	r, err := Decode(trace, DefaultTiming)
	require.NoError(t, err)
	assert.Equal(t, uint8(40), r.Humidity)
}

func TestDecode_TrailingIdleHighIgnored(t *testing.T) {
	trace := append(Encode(NewFrame(40, 0, 21, 0)), Pulse{gpio.High, time.Millisecond})
	r, err := Decode(trace, DefaultTiming)
	require.NoError(t, err)
	assert.Equal(t, uint8(40), r.Humidity)
}

func TestDecode_ShortTraceIsTimeout(t *testing.T) {
	full := Encode(NewFrame(45, 0, 23, 0))

	tests := []struct {
		name  string
		trace []Pulse
	}{
		{name: "empty", trace: nil},
		{name: "no response", trace: []Pulse{{gpio.High, 5 * time.Millisecond}}},
		{name: "response only", trace: full[:3]},
		// 39 complete bits: preamble + 39 pairs, and the low of bit 40
		{name: "39 bits", trace: full[:3+2*39+1]},
		// bit 40 high present but never closed by the final low
		{name: "unterminated last bit", trace: full[:len(full)-1]},
		{name: "half frame then idle", trace: append(append([]Pulse(nil), full[:3+2*20+1]...), Pulse{gpio.High, time.Millisecond})},
		{name: "repeated low", trace: []Pulse{{gpio.Low, 80 * time.Microsecond}, {gpio.Low, 80 * time.Microsecond}}},
		{name: "repeated level in partial frame", trace: func() []Pulse {
			p := append([]Pulse(nil), full[:20]...)
			p[8].Level = gpio.High
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Decode(tt.trace, DefaultTiming)
			require.ErrorIs(t, err, ErrTimeout)
			assert.False(t, r.Valid)
			assert.Equal(t, Reading{}, r)
		})
	}
}

func TestDecode_EveryTruncationIsTimeout(t *testing.T) {
	full := Encode(NewFrame(61, 0, 34, 0))
	for n := 0; n < len(full); n++ {
		_, err := Decode(full[:n], DefaultTiming)
		require.ErrorIs(t, err, ErrTimeout, "truncated to %d pulses", n)
	}
}

func TestDecode_Malformed(t *testing.T) {
	base := func() []Pulse { return Encode(NewFrame(45, 0, 23, 0)) }

	tests := []struct {
		name   string
		mutate func([]Pulse) []Pulse
	}{
		{
			name: "stretched data high",
			mutate: func(p []Pulse) []Pulse {
				p[10].Duration = 200 * time.Microsecond
				return p
			},
		},
		{
			name: "stretched separator low",
			mutate: func(p []Pulse) []Pulse {
				p[9].Duration = 150 * time.Microsecond
				return p
			},
		},
		{
			name: "repeated level",
			mutate: func(p []Pulse) []Pulse {
				p[12].Level = gpio.Low
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.mutate(base()), DefaultTiming)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecode_OutOfRangeIsMalformed(t *testing.T) {
	_, err := Decode(Encode(NewFrame(120, 0, 23, 0)), DefaultTiming)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(Encode(NewFrame(45, 0, 60, 0)), DefaultTiming)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecode_ChecksumMismatch(t *testing.T) {
	f := NewFrame(45, 0, 23, 0)
	f[4]++
	r, err := Decode(Encode(f), DefaultTiming)
	require.ErrorIs(t, err, ErrChecksum)
	assert.False(t, r.Valid)
}

func TestFrame_SingleByteCorruptionRejected(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 100; i++ {
		f := NewFrame(byte(rnd.IntN(256)), byte(rnd.IntN(256)), byte(rnd.IntN(256)), byte(rnd.IntN(256)))
		require.True(t, f.Valid())
		for pos := 0; pos < len(f); pos++ {
			for delta := 1; delta < 256; delta++ {
				c := f
				c[pos] += byte(delta)
				require.False(t, c.Valid(), "frame %v byte %d delta %d", f, pos, delta)
			}
		}
	}
}

func TestChecksum_WrapsModulo256(t *testing.T) {
	assert.Equal(t, byte(0x2c), Checksum(0xff, 0x10, 0x1d, 0x00))
	assert.True(t, Frame{0xff, 0x10, 0x1d, 0x00, 0x2c}.Valid())
}

func TestBits_AdaptiveThreshold(t *testing.T) {
	trace := Encode(NewFrame(45, 0, 23, 0))
	// stretch every high so the fixed 50us threshold reads all ones
	for i := 4; i < len(trace); i++ {
		if trace[i].Level == gpio.High {
			trace[i].Duration += 25 * time.Microsecond
		}
	}
	timing := DefaultTiming
	timing.MaxHigh = 120 * time.Microsecond

	_, err := Decode(trace, timing)
	require.Error(t, err)

	timing.Adaptive = true
	r, err := Decode(trace, timing)
	require.NoError(t, err)
	assert.Equal(t, uint8(45), r.Humidity)
	assert.Equal(t, uint8(23), r.Temperature)
}

func TestBits_Order(t *testing.T) {
	bits, err := Bits(Encode(NewFrame(0x80, 0, 0x01, 0)), DefaultTiming)
	require.NoError(t, err)
	require.Len(t, bits, 40)
	assert.True(t, bits[0])
	assert.False(t, bits[1])
	assert.True(t, bits[23])
	// checksum 0x81
	assert.True(t, bits[32])
	assert.True(t, bits[39])
}

func TestReading_Env(t *testing.T) {
	r := Reading{Humidity: 45, HumidityFrac: 5, Temperature: 23, TemperatureFrac: 1, Valid: true}
	env := r.Env()
	assert.InDelta(t, 23.1, env.Temperature.Celsius(), 1e-6)
	assert.Equal(t, 455*physic.PercentRH/10, env.Humidity)
}

func TestReading_String(t *testing.T) {
	assert.Equal(t, "invalid reading", Reading{}.String())
	assert.Equal(t, "45.0%rH 23.0°C", Reading{Humidity: 45, Temperature: 23, Valid: true}.String())
}

func TestKind(t *testing.T) {
	_, timeout := Decode(nil, DefaultTiming)
	f := NewFrame(1, 2, 3, 4)
	f[4] = 0
	_, checksum := f.Reading()

	assert.Equal(t, KindNone, Kind(nil))
	assert.Equal(t, KindTimeout, Kind(timeout))
	assert.Equal(t, KindChecksum, Kind(checksum))
	assert.Equal(t, KindMalformed, Kind(ErrMalformed))
	assert.Equal(t, KindNotReady, Kind(fmt.Errorf("%w: %w", ErrNotReady, context.DeadlineExceeded)))
	assert.Equal(t, KindGPIO, Kind(assert.AnError))
}
