package dht11

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Reading is one decoded DHT11 measurement. The zero Reading is invalid.
type Reading struct {
	Humidity        uint8 // relative humidity, integer part (%)
	HumidityFrac    uint8 // tenths, zero on most DHT11 parts
	Temperature     uint8 // degrees Celsius, integer part
	TemperatureFrac uint8 // tenths
	Checksum        uint8
	Valid           bool
}

// RelativeHumidity returns the humidity in percent.
func (r Reading) RelativeHumidity() float64 {
	return float64(r.Humidity) + float64(r.HumidityFrac)/10
}

// Celsius returns the temperature in degrees Celsius.
func (r Reading) Celsius() float64 {
	return float64(r.Temperature) + float64(r.TemperatureFrac)/10
}

// Fahrenheit returns the temperature in degrees Fahrenheit.
func (r Reading) Fahrenheit() float64 {
	return r.Celsius()*9/5 + 32
}

// Env converts the reading to periph's physic representation.
// Pressure is left at zero; the DHT11 does not measure it.
func (r Reading) Env() physic.Env {
	tenthsC := int64(r.Temperature)*10 + int64(r.TemperatureFrac)
	tenthsRH := int32(r.Humidity)*10 + int32(r.HumidityFrac)
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(tenthsC)*100*physic.MilliKelvin,
		Humidity:    physic.RelativeHumidity(tenthsRH) * physic.PercentRH / 10,
	}
}

// Frame returns the five wire bytes the reading was decoded from.
func (r Reading) Frame() Frame {
	return Frame{r.Humidity, r.HumidityFrac, r.Temperature, r.TemperatureFrac, r.Checksum}
}

func (r Reading) String() string {
	if !r.Valid {
		return "invalid reading"
	}
	return fmt.Sprintf("%.1f%%rH %.1f°C", r.RelativeHumidity(), r.Celsius())
}

// Frame is the 40-bit DHT11 frame as five bytes:
// humidity, humidity fraction, temperature, temperature fraction, checksum.
type Frame [5]byte

// Checksum is the low byte of the sum of the four payload bytes.
func Checksum(b0, b1, b2, b3 byte) byte {
	return b0 + b1 + b2 + b3
}

// NewFrame builds a frame from payload bytes with a correct checksum.
func NewFrame(humidity, humidityFrac, temperature, temperatureFrac byte) Frame {
	return Frame{
		humidity, humidityFrac, temperature, temperatureFrac,
		Checksum(humidity, humidityFrac, temperature, temperatureFrac),
	}
}

// Valid reports whether the last byte matches the payload checksum.
func (f Frame) Valid() bool {
	return f[4] == Checksum(f[0], f[1], f[2], f[3])
}

// Reading validates the frame and converts it.
func (f Frame) Reading() (Reading, error) {
	if !f.Valid() {
		return Reading{}, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, f[4], Checksum(f[0], f[1], f[2], f[3]))
	}
	// humidity is between 0 % to 100 %, temperature between 0 C to 50 C
	if f[0] > 100 {
		return Reading{}, fmt.Errorf("%w: humidity %d out of range", ErrMalformed, f[0])
	}
	if f[2] > 50 {
		return Reading{}, fmt.Errorf("%w: temperature %d out of range", ErrMalformed, f[2])
	}
	return Reading{
		Humidity:        f[0],
		HumidityFrac:    f[1],
		Temperature:     f[2],
		TemperatureFrac: f[3],
		Checksum:        f[4],
		Valid:           true,
	}, nil
}
