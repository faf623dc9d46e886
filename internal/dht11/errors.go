package dht11

import "errors"

// Read failures. Every failed read wraps exactly one of these, except GPIO
// driver errors which are wrapped as they come.
var (
	// ErrTimeout means fewer than 40 data bits arrived before the line went quiet.
	ErrTimeout = errors.New("dht11: timeout waiting for data")
	// ErrMalformed means the pulse train did not look like a DHT11 frame.
	ErrMalformed = errors.New("dht11: malformed bitstream")
	// ErrChecksum means the fifth byte did not match the payload sum.
	ErrChecksum = errors.New("dht11: checksum mismatch")
	// ErrNotReady means the wait for the next read slot was cut short by the
	// context; no conversion was attempted.
	ErrNotReady = errors.New("dht11: read slot not reached")
)

// Error kinds as returned by Kind.
const (
	KindNone      = ""
	KindTimeout   = "timeout"
	KindMalformed = "malformed"
	KindChecksum  = "checksum"
	KindGPIO      = "gpio"
	KindNotReady  = "not-ready"
)

// Kind classifies a read error. A nil error has KindNone; anything that is
// not one of the protocol errors is reported as KindGPIO.
func Kind(err error) string {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrChecksum):
		return KindChecksum
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	default:
		return KindGPIO
	}
}
