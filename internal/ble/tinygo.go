package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoCentral implements Central on tinygo-org/bluetooth: CoreBluetooth
// on macOS, BlueZ on Linux, WinRT on Windows. On macOS peripheral IDs are
// CoreBluetooth UUIDs, not MAC addresses.
type TinyGoCentral struct {
	adapter *bluetooth.Adapter

	fallbackOnce sync.Once

	// mu protects every field below.
	mu        sync.Mutex
	sink      EventSink
	scanDone  chan struct{} // closed when the most recent Scan call returns
	addresses map[string]bluetooth.Address
	devices   map[string]*bluetooth.Device // connected devices keyed by ID
}

// NewTinyGoCentral creates a Central on the default system adapter.
func NewTinyGoCentral() *TinyGoCentral {
	return &TinyGoCentral{
		adapter:   bluetooth.DefaultAdapter,
		addresses: make(map[string]bluetooth.Address),
		devices:   make(map[string]*bluetooth.Device),
	}
}

// Compile-time check that TinyGoCentral implements Central.
var _ Central = (*TinyGoCentral)(nil)

// Start enables the adapter. tinygo/bluetooth has no power-state
// notifications, so a successful Enable is reported as AdapterPoweredOn and
// a failed one as AdapterPoweredOff.
func (c *TinyGoCentral) Start(sink EventSink) error {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()

	// On macOS the adapter fires this with connected=false from
	// DidDisconnectPeripheral.
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		c.forget(device.Address.String())
	})

	if err := c.adapter.Enable(); err != nil {
		sink.AdapterStateChanged(AdapterPoweredOff)
		return fmt.Errorf("ble: enable adapter: %w", err)
	}
	sink.AdapterStateChanged(AdapterPoweredOn)
	return nil
}

// StartScan runs an unfiltered scan on a background goroutine until
// StopScan. A scan started right after StopScan waits for the previous one
// to return.
func (c *TinyGoCentral) StartScan() error {
	c.mu.Lock()
	prev := c.scanDone
	done := make(chan struct{})
	c.scanDone = done
	c.addresses = make(map[string]bluetooth.Address)
	sink := c.sink
	c.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		err := c.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			id := result.Address.String()
			c.mu.Lock()
			c.addresses[id] = result.Address
			c.mu.Unlock()
			sink.PeripheralDiscovered(Peripheral{ID: id, Name: result.LocalName()}, int(result.RSSI))
		})
		if err != nil {
			slog.Warn("[BLE] scan ended with error", "error", err)
		}
	}()
	return nil
}

func (c *TinyGoCentral) StopScan() error {
	return c.adapter.StopScan()
}

// Connect dials p on a background goroutine. tinygo/bluetooth's Connect
// blocks with its own internal timeout.
func (c *TinyGoCentral) Connect(p Peripheral) error {
	c.mu.Lock()
	addr, ok := c.addresses[p.ID]
	sink := c.sink
	c.mu.Unlock()
	if !ok {
		// Not seen in the current scan; parse the ID as a platform address.
		addr.Set(p.ID)
	}

	go func() {
		device, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
		if err != nil {
			sink.ConnectFailed(p, fmt.Errorf("ble: connect to %s: %w", p.ID, err))
			return
		}
		c.mu.Lock()
		c.devices[p.ID] = &device
		c.mu.Unlock()
		sink.PeripheralConnected(p)
	}()
	return nil
}

func (c *TinyGoCentral) Disconnect(p Peripheral) error {
	device, err := c.device(p.ID)
	if err != nil {
		return err
	}
	go func() {
		if err := device.Disconnect(); err != nil {
			slog.Warn("[BLE] disconnect failed", "id", p.ID, "error", err)
			return
		}
		c.forget(p.ID)
	}()
	return nil
}

func (c *TinyGoCentral) DiscoverServices(p Peripheral) error {
	device, err := c.device(p.ID)
	if err != nil {
		return err
	}
	sink := c.eventSink()

	go func() {
		svcs, err := device.DiscoverServices(nil)
		if err != nil {
			sink.ServicesDiscovered(p, nil, fmt.Errorf("ble: discover services: %w", err))
			return
		}
		out := make([]Service, len(svcs))
		for i := range svcs {
			out[i] = Service{UUID: svcs[i].UUID().String(), handle: &svcs[i]}
		}
		sink.ServicesDiscovered(p, out, nil)
	}()
	return nil
}

func (c *TinyGoCentral) DiscoverCharacteristics(s Service) error {
	svc, ok := s.handle.(*bluetooth.DeviceService)
	if !ok {
		return fmt.Errorf("ble: service %s has no tinygo handle", s.UUID)
	}
	sink := c.eventSink()

	go func() {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			sink.CharacteristicsDiscovered(s, nil, fmt.Errorf("ble: discover characteristics: %w", err))
			return
		}
		out := make([]Characteristic, len(chars))
		for i := range chars {
			out[i] = Characteristic{
				UUID:       chars[i].UUID().String(),
				Properties: c.properties(&chars[i]),
				handle:     &chars[i],
			}
		}
		sink.CharacteristicsDiscovered(s, out, nil)
	}()
	return nil
}

func (c *TinyGoCentral) SetNotify(ch Characteristic, enabled bool) error {
	dc, ok := ch.handle.(*bluetooth.DeviceCharacteristic)
	if !ok {
		return fmt.Errorf("ble: characteristic %s has no tinygo handle", ch.UUID)
	}
	if !enabled {
		return dc.EnableNotifications(nil)
	}
	sink := c.eventSink()
	return dc.EnableNotifications(func(buf []byte) {
		sink.ValueUpdated(ch, buf)
	})
}

func (c *TinyGoCentral) WriteWithoutResponse(ch Characteristic, data []byte) error {
	dc, ok := ch.handle.(*bluetooth.DeviceCharacteristic)
	if !ok {
		return fmt.Errorf("ble: characteristic %s has no tinygo handle", ch.UUID)
	}
	_, err := dc.WriteWithoutResponse(data)
	return err
}

func (c *TinyGoCentral) device(id string) (*bluetooth.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	device, ok := c.devices[id]
	if !ok {
		return nil, fmt.Errorf("ble: %s is not connected", id)
	}
	return device, nil
}

func (c *TinyGoCentral) eventSink() EventSink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink
}

// forget drops a connected device and reports the disconnect once, whether
// it was requested locally or dropped by the peripheral.
func (c *TinyGoCentral) forget(id string) {
	c.mu.Lock()
	_, ok := c.devices[id]
	delete(c.devices, id)
	sink := c.sink
	c.mu.Unlock()
	if ok && sink != nil {
		sink.PeripheralDisconnected(Peripheral{ID: id})
	}
}

// propertyReporter is satisfied by DeviceCharacteristic on backends that
// expose the GATT property bitmask.
type propertyReporter interface {
	Properties() uint32
}

// properties returns the characteristic's properties, warning once when
// the platform cannot report them.
func (c *TinyGoCentral) properties(dc *bluetooth.DeviceCharacteristic) Properties {
	props, reported := tinygoProperties(dc)
	if !reported {
		c.fallbackOnce.Do(func() {
			slog.Warn("[BLE] characteristic properties unavailable, treating every characteristic as writable; use the goble backend to filter")
		})
	}
	return props
}

// tinygoProperties returns the characteristic's properties and true, or
// write-without-response|notify and false on backends that cannot report
// them, so the first characteristic is then chosen as the write target.
func tinygoProperties(dc *bluetooth.DeviceCharacteristic) (Properties, bool) {
	if r, ok := any(dc).(propertyReporter); ok {
		return Properties(r.Properties()), true
	}
	return PropWriteWithoutResponse | PropNotify, false
}
