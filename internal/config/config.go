package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	BLE      BLEConfig      `yaml:"ble"`
	Capture  CaptureConfig  `yaml:"capture"`
	Hotkey   HotkeyConfig   `yaml:"hotkey"`
	Feedback FeedbackConfig `yaml:"feedback"`
	SendText string         `yaml:"send_text"`
	LogLevel string         `yaml:"log_level"`
}

// BLEConfig holds the peripheral selection and session settings.
type BLEConfig struct {
	TargetName string         `yaml:"target_name"`
	Trigger    string         `yaml:"trigger"`
	Backend    string         `yaml:"backend"` // "tinygo" or "goble"
	Timeouts   TimeoutsConfig `yaml:"timeouts"`

	// MaxWriteSize splits sent text into writes of at most this many
	// bytes. 0 sends it whole.
	MaxWriteSize int `yaml:"max_write_size"`

	// AllowPropertyFallback accepts the tinygo backend on platforms where it
	// cannot report characteristic properties. The first characteristic
	// then becomes the write target.
	AllowPropertyFallback bool `yaml:"allow_property_fallback"`
}

// TimeoutsConfig bounds each session phase. Zero waits forever.
type TimeoutsConfig struct {
	Scan            time.Duration `yaml:"scan"`
	Connect         time.Duration `yaml:"connect"`
	Services        time.Duration `yaml:"services"`
	Characteristics time.Duration `yaml:"characteristics"`
}

// CaptureConfig selects what happens when the shutter fires.
type CaptureConfig struct {
	Method    string   `yaml:"method"` // "screen", "key" or "none"
	Dir       string   `yaml:"dir"`
	Key       string   `yaml:"key"`
	Modifiers []string `yaml:"modifiers"`
}

// HotkeyConfig holds the global key combos standing in for the app buttons.
type HotkeyConfig struct {
	Toggle []string `yaml:"toggle"`
	Send   []string `yaml:"send"`
}

// FeedbackConfig holds shutter sound settings.
type FeedbackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sound   string `yaml:"sound"` // WAV path, empty for the built-in click
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "remote-shutter")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// tinygoLacksProperties is true where tinygo/bluetooth does not expose
// characteristic properties. go-ble covers these platforms.
var tinygoLacksProperties = runtime.GOOS == "linux" || runtime.GOOS == "darwin"

func defaultBackend() string {
	if tinygoLacksProperties {
		return "goble"
	}
	return "tinygo"
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		BLE: BLEConfig{
			TargetName: "Revo",
			Trigger:    "shoot",
			Backend:    "tinygo",
		},
		Capture: CaptureConfig{
			Method: "screen",
			Dir:    filepath.Join(home, "Pictures", "remote-shutter"),
			Key:    "space",
		},
		Hotkey: HotkeyConfig{
			Toggle: []string{"ctrl", "shift", "b"},
			Send:   []string{"ctrl", "shift", "s"},
		},
		Feedback: FeedbackConfig{
			Enabled: true,
		},
		SendText: "shoot",
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in capture.dir and feedback.sound is expanded to
// the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Capture.Dir = expandTilde(cfg.Capture.Dir)
	cfg.Feedback.Sound = expandTilde(cfg.Feedback.Sound)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.BLE.TargetName == "" {
		return fmt.Errorf("ble.target_name must not be empty")
	}

	if strings.TrimSpace(c.BLE.Trigger) != c.BLE.Trigger || c.BLE.Trigger == "" {
		return fmt.Errorf("ble.trigger must be non-empty without surrounding whitespace, got %q", c.BLE.Trigger)
	}

	switch c.BLE.Backend {
	case "tinygo", "goble":
	default:
		return fmt.Errorf("ble.backend must be \"tinygo\" or \"goble\", got %q", c.BLE.Backend)
	}

	if c.BLE.Backend == "tinygo" && tinygoLacksProperties && !c.BLE.AllowPropertyFallback {
		return fmt.Errorf("ble.backend \"tinygo\" cannot tell writable characteristics apart on %s; use \"goble\" or set ble.allow_property_fallback", runtime.GOOS)
	}

	t := c.BLE.Timeouts
	if t.Scan < 0 || t.Connect < 0 || t.Services < 0 || t.Characteristics < 0 {
		return fmt.Errorf("ble.timeouts must not be negative")
	}

	if c.BLE.MaxWriteSize < 0 {
		return fmt.Errorf("ble.max_write_size must not be negative, got %d", c.BLE.MaxWriteSize)
	}

	switch c.Capture.Method {
	case "screen":
		if c.Capture.Dir == "" {
			return fmt.Errorf("capture.dir must not be empty for the screen method")
		}
	case "key":
		if c.Capture.Key == "" {
			return fmt.Errorf("capture.key must not be empty for the key method")
		}
	case "none":
	default:
		return fmt.Errorf("capture.method must be \"screen\", \"key\" or \"none\", got %q", c.Capture.Method)
	}

	if len(c.Hotkey.Toggle) == 0 {
		return fmt.Errorf("hotkey.toggle must not be empty")
	}
	if len(c.Hotkey.Send) == 0 {
		return fmt.Errorf("hotkey.send must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

const defaultHeader = "# remote-shutter configuration\n# Timeouts use Go duration syntax (e.g. 30s); 0 waits forever.\n\n"

// WriteDefault writes the default config to DefaultConfigPath and returns
// the path. If a config file already exists it is left untouched and
// WriteDefault returns ("", nil).
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
