package ble

import (
	"runtime"
	"testing"

	"tinygo.org/x/bluetooth"
)

func TestTinyGoPropertiesFallback(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("tinygo reports characteristic properties on " + runtime.GOOS)
	}

	props, reported := tinygoProperties(&bluetooth.DeviceCharacteristic{})
	if reported {
		t.Fatal("tinygo should not report properties on " + runtime.GOOS)
	}
	if props != PropWriteWithoutResponse|PropNotify {
		t.Errorf("fallback properties = %#x, want write-without-response|notify", props)
	}
}

func TestDefaultBackendFiltersProperties(t *testing.T) {
	tests := map[string]string{
		"linux":   BackendGoBLE,
		"darwin":  BackendGoBLE,
		"windows": BackendTinyGo,
	}
	want, ok := tests[runtime.GOOS]
	if !ok {
		want = BackendTinyGo
	}
	if got := DefaultBackend(); got != want {
		t.Errorf("DefaultBackend() on %s = %q, want %q", runtime.GOOS, got, want)
	}
}

func TestNewCentralRejectsUnknownBackend(t *testing.T) {
	if _, err := NewCentral("bluez"); err == nil {
		t.Error("NewCentral(\"bluez\") should fail")
	}
}
