package ble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// goBLEDeviceFactory opens the first HCI controller. Requires CAP_NET_ADMIN.
var goBLEDeviceFactory = func() (ble.Device, error) {
	return linux.NewDevice()
}
