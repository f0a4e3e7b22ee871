package ble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

var goBLEDeviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}
