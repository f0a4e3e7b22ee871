package ble

import (
	"fmt"
	"runtime"
)

// Backend names accepted by NewCentral.
const (
	BackendTinyGo = "tinygo"
	BackendGoBLE  = "goble"
)

// DefaultBackend returns go-ble on Linux and macOS, where tinygo/bluetooth
// cannot report characteristic properties, and tinygo elsewhere.
func DefaultBackend() string {
	switch runtime.GOOS {
	case "linux", "darwin":
		return BackendGoBLE
	default:
		return BackendTinyGo
	}
}

// NewCentral returns the platform binding for backend. An empty backend
// selects DefaultBackend.
func NewCentral(backend string) (Central, error) {
	if backend == "" {
		backend = DefaultBackend()
	}
	switch backend {
	case BackendTinyGo:
		return NewTinyGoCentral(), nil
	case BackendGoBLE:
		return newGoBLECentral()
	default:
		return nil, fmt.Errorf("ble: unknown backend %q", backend)
	}
}
