// Command test-hotkey is a manual test for the global hotkey listener.
// Run it, then press Ctrl+Shift+B (toggle) or Ctrl+Shift+S (send) to see
// events. Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--toggle ctrl,shift,b] [--send ctrl,shift,s]
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/chaz8081/remote-shutter/internal/hotkey"
)

func main() {
	toggle := pflag.StringSlice("toggle", []string{"ctrl", "shift", "b"}, "keys of the toggle hotkey")
	send := pflag.StringSlice("send", []string{"ctrl", "shift", "s"}, "keys of the send hotkey")
	pflag.Parse()

	fmt.Printf("Listening for %s (toggle) and %s (send)...\n",
		hotkey.FormatCombo(*toggle), hotkey.FormatCombo(*send))
	fmt.Println("Press Ctrl+C to exit.")

	listener := hotkey.NewListener(
		hotkey.Binding{Action: hotkey.ActionToggle, Keys: *toggle},
		hotkey.Binding{Action: hotkey.ActionSend, Keys: *send},
	)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		listener.Stop()
	}()

	// Read events
	go func() {
		for ev := range listener.Events() {
			switch ev.Action {
			case hotkey.ActionToggle:
				fmt.Println("<-> TOGGLE (switch bluetooth)")
			case hotkey.ActionSend:
				fmt.Println(">>> SEND   (write text, take picture)")
			}
		}
		fmt.Println("Event channel closed.")
	}()

	// Blocks until stopped
	listener.Start()
	fmt.Println("Done.")
}
