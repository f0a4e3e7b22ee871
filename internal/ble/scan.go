package ble

import (
	"context"
	"fmt"
	"sync"
)

// Device is a peripheral seen by ScanForDevices.
type Device struct {
	Name string
	ID   string
	RSSI int
}

// ScanForDevices starts central, scans until ctx is done and returns every
// distinct peripheral seen, in discovery order. Use a ctx with a deadline.
func ScanForDevices(ctx context.Context, central Central) ([]Device, error) {
	col := &scanCollector{
		state: make(chan AdapterState, 1),
		index: make(map[string]int),
	}
	if err := central.Start(col); err != nil {
		return nil, fmt.Errorf("ble: enable adapter: %w", err)
	}

	select {
	case st := <-col.state:
		if st != AdapterPoweredOn {
			return nil, fmt.Errorf("%w: adapter is %s", ErrAdapterUnavailable, st)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("ble: waiting for adapter: %w", ctx.Err())
	}

	if err := central.StartScan(); err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	<-ctx.Done()
	_ = central.StopScan()

	return col.result(), nil
}

// scanCollector records discoveries and ignores every other event.
type scanCollector struct {
	state chan AdapterState

	mu      sync.Mutex
	devices []Device
	index   map[string]int
}

func (c *scanCollector) AdapterStateChanged(state AdapterState) {
	select {
	case <-c.state:
	default:
	}
	c.state <- state
}

func (c *scanCollector) PeripheralDiscovered(p Peripheral, rssi int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[p.ID]; ok {
		c.devices[i].RSSI = rssi
		if c.devices[i].Name == "" {
			c.devices[i].Name = p.Name
		}
		return
	}
	c.index[p.ID] = len(c.devices)
	c.devices = append(c.devices, Device{Name: p.Name, ID: p.ID, RSSI: rssi})
}

func (c *scanCollector) result() []Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out
}

func (c *scanCollector) PeripheralConnected(Peripheral)                             {}
func (c *scanCollector) PeripheralDisconnected(Peripheral)                          {}
func (c *scanCollector) ConnectFailed(Peripheral, error)                            {}
func (c *scanCollector) ServicesDiscovered(Peripheral, []Service, error)            {}
func (c *scanCollector) CharacteristicsDiscovered(Service, []Characteristic, error) {}
func (c *scanCollector) ValueUpdated(Characteristic, []byte)                        {}
