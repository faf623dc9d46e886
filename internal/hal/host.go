//go:build !disablegpio

package hal

import "periph.io/x/host/v3"

// hostInit loads the periph host drivers. It is replaced in tests.
var hostInit = func() error {
	_, err := host.Init()
	return err
}
