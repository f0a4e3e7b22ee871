package ble

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScanForDevicesDeduplicates(t *testing.T) {
	central := newMockCentral()
	central.powerOn = true
	central.advertise = []Peripheral{
		{ID: "id-1", Name: ""},
		{ID: "id-2", Name: "Revo"},
		{ID: "id-1", Name: "Keyboard"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	devices, err := ScanForDevices(ctx, central)
	if err != nil {
		t.Fatalf("ScanForDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2: %v", len(devices), devices)
	}
	if devices[0].ID != "id-1" || devices[0].Name != "Keyboard" {
		t.Errorf("devices[0] = %+v, want id-1 named Keyboard", devices[0])
	}
	if devices[0].RSSI != -42 {
		t.Errorf("devices[0].RSSI = %d, want latest reading -42", devices[0].RSSI)
	}
	if devices[1].Name != "Revo" {
		t.Errorf("devices[1].Name = %q, want Revo", devices[1].Name)
	}
	if n := central.count("StopScan"); n != 1 {
		t.Errorf("StopScan calls = %d, want 1", n)
	}
}

func TestScanForDevicesAdapterOff(t *testing.T) {
	central := newMockCentral()
	central.startErr = errors.New("powered off")

	_, err := ScanForDevices(context.Background(), central)
	if err == nil {
		t.Fatal("ScanForDevices() should fail when the adapter cannot start")
	}
}

func TestScanForDevicesWaitsForPower(t *testing.T) {
	central := newMockCentral()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ScanForDevices(ctx, central)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ScanForDevices() error = %v, want deadline exceeded", err)
	}
	if n := central.count("StartScan"); n != 0 {
		t.Errorf("StartScan calls = %d, want 0", n)
	}
}
