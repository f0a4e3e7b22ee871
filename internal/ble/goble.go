//go:build linux || darwin

package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-ble/ble"
)

// GoBLECentral implements Central on go-ble/ble: raw HCI sockets on Linux,
// CoreBluetooth on macOS.
type GoBLECentral struct {
	dev ble.Device

	// mu protects every field below.
	mu         sync.Mutex
	sink       EventSink
	scanCancel context.CancelFunc
	scanDone   chan struct{}
	addrs      map[string]ble.Addr
	dials      map[string]context.CancelFunc
	clients    map[string]ble.Client
}

type goBLEService struct {
	client ble.Client
	svc    *ble.Service
}

type goBLECharacteristic struct {
	client ble.Client
	char   *ble.Characteristic
}

// NewGoBLECentral opens the platform HCI device.
func NewGoBLECentral() (*GoBLECentral, error) {
	dev, err := goBLEDeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("ble: open go-ble device: %w", err)
	}
	return &GoBLECentral{
		dev:     dev,
		addrs:   make(map[string]ble.Addr),
		dials:   make(map[string]context.CancelFunc),
		clients: make(map[string]ble.Client),
	}, nil
}

func newGoBLECentral() (Central, error) {
	c, err := NewGoBLECentral()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Compile-time check that GoBLECentral implements Central.
var _ Central = (*GoBLECentral)(nil)

// Start reports the adapter as powered on; the HCI device was already
// opened by NewGoBLECentral.
func (c *GoBLECentral) Start(sink EventSink) error {
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
	sink.AdapterStateChanged(AdapterPoweredOn)
	return nil
}

func (c *GoBLECentral) StartScan() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	prev := c.scanDone
	c.scanCancel = cancel
	c.scanDone = done
	c.addrs = make(map[string]ble.Addr)
	sink := c.sink
	c.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		err := c.dev.Scan(ctx, false, func(a ble.Advertisement) {
			id := a.Addr().String()
			c.mu.Lock()
			c.addrs[id] = a.Addr()
			c.mu.Unlock()
			sink.PeripheralDiscovered(Peripheral{ID: id, Name: a.LocalName()}, a.RSSI())
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("[BLE] scan ended with error", "error", err)
		}
	}()
	return nil
}

func (c *GoBLECentral) StopScan() error {
	c.mu.Lock()
	cancel := c.scanCancel
	c.scanCancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return fmt.Errorf("ble: not scanning")
	}
	cancel()
	return nil
}

func (c *GoBLECentral) Connect(p Peripheral) error {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	addr, ok := c.addrs[p.ID]
	if !ok {
		addr = ble.NewAddr(p.ID)
	}
	c.dials[p.ID] = cancel
	sink := c.sink
	c.mu.Unlock()

	go func() {
		defer cancel()
		client, err := c.dev.Dial(ctx, addr)

		c.mu.Lock()
		delete(c.dials, p.ID)
		if err == nil {
			c.clients[p.ID] = client
		}
		c.mu.Unlock()

		if err != nil {
			sink.ConnectFailed(p, fmt.Errorf("ble: connect to %s: %w", p.ID, err))
			return
		}
		go c.watch(p, client)
		sink.PeripheralConnected(p)
	}()
	return nil
}

// watch reports the disconnect of client, whichever side closed the link.
func (c *GoBLECentral) watch(p Peripheral, client ble.Client) {
	<-client.Disconnected()
	c.mu.Lock()
	if c.clients[p.ID] == client {
		delete(c.clients, p.ID)
	}
	sink := c.sink
	c.mu.Unlock()
	sink.PeripheralDisconnected(p)
}

func (c *GoBLECentral) Disconnect(p Peripheral) error {
	c.mu.Lock()
	client, connected := c.clients[p.ID]
	cancelDial, dialing := c.dials[p.ID]
	c.mu.Unlock()

	switch {
	case connected:
		return client.CancelConnection()
	case dialing:
		cancelDial()
		return nil
	default:
		return fmt.Errorf("ble: %s is not connected", p.ID)
	}
}

func (c *GoBLECentral) DiscoverServices(p Peripheral) error {
	c.mu.Lock()
	client, ok := c.clients[p.ID]
	sink := c.sink
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("ble: %s is not connected", p.ID)
	}

	go func() {
		svcs, err := client.DiscoverServices(nil)
		if err != nil {
			sink.ServicesDiscovered(p, nil, fmt.Errorf("ble: discover services: %w", err))
			return
		}
		out := make([]Service, len(svcs))
		for i, svc := range svcs {
			out[i] = Service{UUID: svc.UUID.String(), handle: goBLEService{client: client, svc: svc}}
		}
		sink.ServicesDiscovered(p, out, nil)
	}()
	return nil
}

func (c *GoBLECentral) DiscoverCharacteristics(s Service) error {
	h, ok := s.handle.(goBLEService)
	if !ok {
		return fmt.Errorf("ble: service %s has no go-ble handle", s.UUID)
	}
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()

	go func() {
		chars, err := h.client.DiscoverCharacteristics(nil, h.svc)
		if err != nil {
			sink.CharacteristicsDiscovered(s, nil, fmt.Errorf("ble: discover characteristics: %w", err))
			return
		}
		out := make([]Characteristic, len(chars))
		for i, ch := range chars {
			// Subscribe needs the CCCD, which only descriptor discovery fills in.
			if _, err := h.client.DiscoverDescriptors(nil, ch); err != nil {
				slog.Debug("[BLE] descriptor discovery failed", "uuid", ch.UUID.String(), "error", err)
			}
			out[i] = Characteristic{
				UUID:       ch.UUID.String(),
				Properties: Properties(ch.Property),
				handle:     goBLECharacteristic{client: h.client, char: ch},
			}
		}
		sink.CharacteristicsDiscovered(s, out, nil)
	}()
	return nil
}

func (c *GoBLECentral) SetNotify(ch Characteristic, enabled bool) error {
	h, ok := ch.handle.(goBLECharacteristic)
	if !ok {
		return fmt.Errorf("ble: characteristic %s has no go-ble handle", ch.UUID)
	}
	if !enabled {
		return h.client.Unsubscribe(h.char, false)
	}
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	return h.client.Subscribe(h.char, false, func(data []byte) {
		sink.ValueUpdated(ch, data)
	})
}

func (c *GoBLECentral) WriteWithoutResponse(ch Characteristic, data []byte) error {
	h, ok := ch.handle.(goBLECharacteristic)
	if !ok {
		return fmt.Errorf("ble: characteristic %s has no go-ble handle", ch.UUID)
	}
	return h.client.WriteCharacteristic(h.char, data, true)
}
