//go:build !linux && !darwin

package ble

import "fmt"

func newGoBLECentral() (Central, error) {
	return nil, fmt.Errorf("ble: go-ble backend is not supported on this platform")
}
