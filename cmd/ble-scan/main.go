// Command ble-scan lists nearby BLE peripherals so the remote's advertised
// name can be copied into ble.target_name.
//
// Usage:
//
//	go run ./cmd/ble-scan [--backend tinygo|goble] [--timeout 10s]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/chaz8081/remote-shutter/internal/ble"
)

func main() {
	backend := pflag.StringP("backend", "b", ble.DefaultBackend(), "BLE backend: tinygo or goble")
	timeout := pflag.DurationP("timeout", "t", 10*time.Second, "how long to scan")
	named := pflag.Bool("named", false, "only list peripherals that advertise a name")
	pflag.Parse()

	central, err := ble.NewCentral(*backend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ble-scan: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	fmt.Printf("Scanning for %s...\n", *timeout)
	devices, err := ble.ScanForDevices(ctx, central)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ble-scan: %v\n", err)
		os.Exit(1)
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].RSSI > devices[j].RSSI
	})

	count := 0
	for _, d := range devices {
		if *named && d.Name == "" {
			continue
		}
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %-24s %-40s %4d dBm\n", name, d.ID, d.RSSI)
		count++
	}
	fmt.Printf("Found %d peripheral(s).\n", count)
}
