package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/chaz8081/remote-shutter/internal/audio"
	"github.com/chaz8081/remote-shutter/internal/ble"
	"github.com/chaz8081/remote-shutter/internal/capture"
	"github.com/chaz8081/remote-shutter/internal/config"
	"github.com/chaz8081/remote-shutter/internal/hotkey"
)

func main() {
	// CLI flags
	configPath := pflag.StringP("config", "c", "", "path to config file (default: ~/.config/remote-shutter/config.yaml)")
	target := pflag.StringP("target", "t", "", "advertised name of the remote (overrides ble.target_name)")
	backend := pflag.String("backend", "", "BLE backend: tinygo or goble (overrides ble.backend)")
	logLevel := pflag.String("log-level", "", "debug, info, warn or error (overrides log_level)")
	initConfig := pflag.Bool("init", false, "write the default config file and exit")
	pflag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal("writing default config", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("config", err)
	}
	if pflag.CommandLine.Changed("target") {
		cfg.BLE.TargetName = *target
	}
	if pflag.CommandLine.Changed("backend") {
		cfg.BLE.Backend = *backend
	}
	if pflag.CommandLine.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}

	setupLogging(cfg.LogLevel)
	printBanner(cfg)

	// Initialize the BLE session
	central, err := ble.NewCentral(cfg.BLE.Backend)
	if err != nil {
		fatal("Failed to create BLE central", err)
	}
	session, err := ble.NewSession(central, cfg.BLE.TargetName, sessionOptions(cfg))
	if err != nil {
		fatal("Failed to create BLE session", err)
	}

	// Initialize the shutter action
	capturer, err := capture.New(cfg.Capture.Method, cfg.Capture.Dir, cfg.Capture.Key, cfg.Capture.Modifiers)
	if err != nil {
		fatal("Failed to initialize capture", err)
	}
	fb := newFeedback(cfg.Feedback)
	worker := capture.NewWorker(capturer, 8, fb.play)
	session.OnTrigger(worker.Trigger)
	slog.Info("Capture ready", "method", cfg.Capture.Method)

	// Initialize hotkey listener
	listener := hotkey.NewListener(
		hotkey.Binding{Action: hotkey.ActionToggle, Keys: cfg.Hotkey.Toggle},
		hotkey.Binding{Action: hotkey.ActionSend, Keys: cfg.Hotkey.Send},
	)

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)

	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- session.Run(ctx)
	}()

	// Start hotkey listener in background
	go listener.Start()

	slog.Info("Ready! Waiting for remote", "target", cfg.BLE.TargetName,
		"toggle", hotkey.FormatCombo(cfg.Hotkey.Toggle),
		"send", hotkey.FormatCombo(cfg.Hotkey.Send))

	// Main event loop
	events := listener.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				slog.Info("Hotkey listener stopped")
				events = nil
				continue
			}

			switch ev.Action {
			case hotkey.ActionToggle:
				session.SwitchBluetooth()
			case hotkey.ActionSend:
				session.WriteValue(cfg.SendText)
				worker.Trigger()
			}

		case connected := <-session.States():
			if connected {
				slog.Info("Connected to remote", "target", cfg.BLE.TargetName)
			} else {
				slog.Info("Disconnected from remote", "target", cfg.BLE.TargetName)
			}

		case err := <-sessionErr:
			cancel()
			fb.close()
			// The hotkey listener is left running for the same gohook
			// cleanup crash; fatal exits the process.
			fatal("Bluetooth unavailable", err)

		case sig := <-sigCh:
			slog.Info("Shutting down", "signal", sig)
			cancel()
			<-sessionErr
			fb.close()
			slog.Info("Goodbye!")
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// sessionOptions maps the ble config section onto ble.SessionOptions.
func sessionOptions(cfg *config.Config) ble.SessionOptions {
	opts := ble.DefaultSessionOptions()
	opts.Trigger = cfg.BLE.Trigger
	opts.ScanTimeout = cfg.BLE.Timeouts.Scan
	opts.ConnectTimeout = cfg.BLE.Timeouts.Connect
	opts.ServiceDiscoveryTimeout = cfg.BLE.Timeouts.Services
	opts.CharacteristicDiscoveryTimeout = cfg.BLE.Timeouts.Characteristics
	opts.MaxWriteSize = cfg.BLE.MaxWriteSize
	opts.Observer = func(err error) {
		switch {
		case errors.Is(err, ble.ErrWriteWithNoTarget):
			slog.Warn("Remote not ready, nothing sent")
		case errors.Is(err, ble.ErrScanTimeout):
			slog.Warn("Remote not found yet, still scanning", "target", cfg.BLE.TargetName)
		default:
			slog.Debug("BLE session failure", "error", err)
		}
	}
	return opts
}

// feedback plays a shutter sound after each capture. A nil player
// disables it.
type feedback struct {
	player *audio.Player
	sound  *audio.Sound
}

func newFeedback(cfg config.FeedbackConfig) *feedback {
	if !cfg.Enabled {
		return &feedback{}
	}

	sound := audio.Click(48000)
	if cfg.Sound != "" {
		s, err := audio.LoadWAV(cfg.Sound)
		if err != nil {
			slog.Warn("Failed to load shutter sound, using click", "path", cfg.Sound, "error", err)
		} else {
			sound = s
		}
	}

	player, err := audio.NewPlayer()
	if err != nil {
		slog.Warn("Audio output unavailable, shutter sound disabled", "error", err)
		return &feedback{}
	}
	return &feedback{player: player, sound: sound}
}

func (f *feedback) play(string) {
	if f.player == nil {
		return
	}
	if err := f.player.Play(f.sound); err != nil {
		slog.Warn("Shutter sound failed", "error", err)
	}
}

func (f *feedback) close() {
	if f.player != nil {
		f.player.Close()
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		fmt.Printf("Config loaded from %s\n", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	fmt.Println("No config file found, using defaults")
	return config.Default(), nil
}

// setupLogging installs a text slog handler at level.
func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== remote-shutter ===")
	fmt.Printf("  Remote:  %s (trigger %q)\n", cfg.BLE.TargetName, cfg.BLE.Trigger)
	fmt.Printf("  Backend: %s\n", cfg.BLE.Backend)
	fmt.Printf("  Capture: %s\n", cfg.Capture.Method)
	fmt.Printf("  Toggle:  %s\n", hotkey.FormatCombo(cfg.Hotkey.Toggle))
	fmt.Printf("  Send:    %s (%q)\n", hotkey.FormatCombo(cfg.Hotkey.Send), cfg.SendText)
	fmt.Printf("  Sound:   %t\n", cfg.Feedback.Enabled)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("======================")
}
