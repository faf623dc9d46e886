//go:build disablegpio

package hal

// hostInit refuses to touch the hardware; run with DHT_SIMULATE=true instead.
var hostInit = func() error {
	return ErrGPIODisabled
}
