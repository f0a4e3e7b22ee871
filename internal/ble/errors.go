package ble

import "errors"

// Session failure kinds. None of these is returned by the public Session
// API; they are logged and passed to SessionOptions.Observer.
var (
	ErrAdapterUnavailable   = errors.New("ble: adapter unavailable")
	ErrNoMatchingPeripheral = errors.New("ble: no matching peripheral")
	ErrDiscoveryEmpty       = errors.New("ble: service discovery returned no services")
	ErrDecodeFailure        = errors.New("ble: notification payload is not valid UTF-8")
	ErrWriteWithNoTarget    = errors.New("ble: no writable characteristic")

	ErrScanTimeout                    = errors.New("ble: scan timed out")
	ErrConnectTimeout                 = errors.New("ble: connect timed out")
	ErrServiceDiscoveryTimeout        = errors.New("ble: service discovery timed out")
	ErrCharacteristicDiscoveryTimeout = errors.New("ble: characteristic discovery timed out")
)
