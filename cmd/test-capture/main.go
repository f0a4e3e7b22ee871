// Command test-capture is a manual test for the shutter action.
// It waits 3 seconds, then takes one picture and plays the shutter sound.
// Focus the camera application first when using the key method.
//
// Usage:
//
//	go run ./cmd/test-capture [--method screen|key] [--dir DIR] [--key space]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/chaz8081/remote-shutter/internal/audio"
	"github.com/chaz8081/remote-shutter/internal/capture"
)

func main() {
	method := pflag.String("method", "screen", "capture method: screen or key")
	dir := pflag.String("dir", filepath.Join(os.TempDir(), "remote-shutter"), "directory for screen captures")
	key := pflag.String("key", "space", "shutter key for the key method")
	modifiers := pflag.StringSlice("modifiers", nil, "modifier keys held with --key")
	sound := pflag.Bool("sound", true, "play the shutter click afterwards")
	pflag.Parse()

	c, err := capture.New(*method, *dir, *key, *modifiers)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Will capture using %q method in 3 seconds...\n", *method)
	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	path, err := c.Capture()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if path != "" {
		fmt.Printf("Saved %s\n", path)
	}

	if *sound {
		player, err := audio.NewPlayer()
		if err != nil {
			fmt.Printf("Audio unavailable: %v\n", err)
		} else {
			if err := player.Play(audio.Click(48000)); err != nil {
				fmt.Printf("Playback failed: %v\n", err)
			}
			player.Close()
		}
	}

	fmt.Println("\nDone!")
}
