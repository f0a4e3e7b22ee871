// Package ble provides the BLE central session for the remote shutter. It
// finds a named peripheral, walks its GATT tree, subscribes to every
// characteristic and fires a trigger callback when the peripheral sends the
// shutter command.
package ble

// AdapterState is the power state of the host BLE radio.
type AdapterState int

const (
	AdapterUnknown AdapterState = iota
	AdapterPoweredOff
	AdapterPoweredOn
)

func (s AdapterState) String() string {
	switch s {
	case AdapterPoweredOff:
		return "powered-off"
	case AdapterPoweredOn:
		return "powered-on"
	default:
		return "unknown"
	}
}

// Properties is the GATT characteristic property bitmask. Bit positions
// follow the Bluetooth Core specification.
type Properties uint8

const (
	PropBroadcast Properties = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
)

// Writable reports whether the characteristic accepts writes of either kind.
func (p Properties) Writable() bool {
	return p&(PropWrite|PropWriteWithoutResponse) != 0
}

// Peripheral identifies a remote device seen during a scan.
type Peripheral struct {
	ID   string // platform address (MAC on Linux, CoreBluetooth UUID on macOS)
	Name string // advertised local name, may be empty
}

// Service is an opaque handle to a discovered GATT service.
type Service struct {
	UUID   string
	handle any
}

// Characteristic is an opaque handle to a discovered GATT characteristic.
type Characteristic struct {
	UUID       string
	Properties Properties
	handle     any
}

// Central is the platform BLE binding consumed by Session. Every method is
// a request: it must not block on radio work. Results are reported back
// through the EventSink handed to Start.
type Central interface {
	// Start powers on the adapter and begins reporting events to sink.
	Start(sink EventSink) error
	StartScan() error
	StopScan() error
	Connect(p Peripheral) error
	Disconnect(p Peripheral) error
	DiscoverServices(p Peripheral) error
	DiscoverCharacteristics(s Service) error
	// SetNotify enables or disables value-update delivery for c. Calling it on
	// a characteristic without notify support may fail; callers treat that
	// as benign.
	SetNotify(c Characteristic, enabled bool) error
	WriteWithoutResponse(c Characteristic, data []byte) error
}

// AdapterEventSink receives adapter-level events from a Central.
type AdapterEventSink interface {
	AdapterStateChanged(state AdapterState)
	PeripheralDiscovered(p Peripheral, rssi int)
	PeripheralConnected(p Peripheral)
	PeripheralDisconnected(p Peripheral)
	ConnectFailed(p Peripheral, err error)
}

// PeripheralEventSink receives GATT events for the connected peripheral.
type PeripheralEventSink interface {
	ServicesDiscovered(p Peripheral, services []Service, err error)
	CharacteristicsDiscovered(s Service, chars []Characteristic, err error)
	ValueUpdated(c Characteristic, value []byte)
}

// EventSink is the full set of callbacks a Central reports to.
type EventSink interface {
	AdapterEventSink
	PeripheralEventSink
}
