// Package hal is the GPIO access layer: host initialisation and pin lookup
// through periph.io.
//
// periph registers the Raspberry Pi drivers on linux/arm; on other hosts
// Init still succeeds but no GPIO pins are registered, so Open fails and the
// caller can fall back to the simulator. Building with the disablegpio tag
// leaves periph's host drivers out entirely and Init returns ErrGPIODisabled.
package hal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// ErrGPIODisabled is returned by Init in builds tagged disablegpio.
var ErrGPIODisabled = errors.New("gpio support disabled at build time")

var (
	initOnce sync.Once
	initErr  error
)

// Init performs the global periph host initialisation. It is safe to call
// more than once; only the first call does any work.
func Init() error {
	initOnce.Do(func() {
		if err := hostInit(); err != nil {
			initErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return initErr
}

// Open looks up a GPIO line. Pins are addressed by BCM number ("26"), by
// name ("GPIO26") or by any alias periph knows ("P1_37").
func Open(name string) (gpio.PinIO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty pin name")
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 {
			return nil, fmt.Errorf("invalid pin number %d", n)
		}
		name = fmt.Sprintf("GPIO%d", n)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin %s not found in hardware", name)
	}
	return p, nil
}
