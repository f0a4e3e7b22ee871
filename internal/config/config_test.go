package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BLE.TargetName != "Revo" {
		t.Errorf("BLE.TargetName = %q, want %q", cfg.BLE.TargetName, "Revo")
	}
	if cfg.BLE.Trigger != "shoot" {
		t.Errorf("BLE.Trigger = %q, want %q", cfg.BLE.Trigger, "shoot")
	}
	if cfg.BLE.Backend != defaultBackend() {
		t.Errorf("BLE.Backend = %q, want %q", cfg.BLE.Backend, defaultBackend())
	}
	if cfg.BLE.AllowPropertyFallback {
		t.Error("BLE.AllowPropertyFallback should default to false")
	}
	if cfg.BLE.Timeouts != (TimeoutsConfig{}) {
		t.Errorf("BLE.Timeouts = %+v, want all zero", cfg.BLE.Timeouts)
	}
	if cfg.Capture.Method != "screen" {
		t.Errorf("Capture.Method = %q, want %q", cfg.Capture.Method, "screen")
	}
	if !strings.HasSuffix(cfg.Capture.Dir, filepath.Join("Pictures", "remote-shutter")) {
		t.Errorf("Capture.Dir = %q, want suffix Pictures/remote-shutter", cfg.Capture.Dir)
	}
	if len(cfg.Hotkey.Toggle) != 3 || len(cfg.Hotkey.Send) != 3 {
		t.Errorf("Hotkey = %+v, want 3-key combos", cfg.Hotkey)
	}
	if !cfg.Feedback.Enabled {
		t.Error("Feedback.Enabled should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
ble:
  target_name: Shutter-42
  trigger: snap
  backend: goble
  timeouts:
    scan: 30s
    connect: 10s
    services: 5s
    characteristics: 2500ms
  max_write_size: 20
capture:
  method: key
  key: enter
  modifiers: ["cmd"]
hotkey:
  toggle: ["alt", "c"]
  send: ["alt", "s"]
feedback:
  enabled: false
  sound: /tmp/click.wav
send_text: hello
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BLE.TargetName != "Shutter-42" {
		t.Errorf("BLE.TargetName = %q, want %q", cfg.BLE.TargetName, "Shutter-42")
	}
	if cfg.BLE.Trigger != "snap" {
		t.Errorf("BLE.Trigger = %q, want %q", cfg.BLE.Trigger, "snap")
	}
	if cfg.BLE.Backend != "goble" {
		t.Errorf("BLE.Backend = %q, want %q", cfg.BLE.Backend, "goble")
	}
	want := TimeoutsConfig{
		Scan:            30 * time.Second,
		Connect:         10 * time.Second,
		Services:        5 * time.Second,
		Characteristics: 2500 * time.Millisecond,
	}
	if cfg.BLE.Timeouts != want {
		t.Errorf("BLE.Timeouts = %+v, want %+v", cfg.BLE.Timeouts, want)
	}
	if cfg.BLE.MaxWriteSize != 20 {
		t.Errorf("BLE.MaxWriteSize = %d, want 20", cfg.BLE.MaxWriteSize)
	}
	if cfg.Capture.Method != "key" || cfg.Capture.Key != "enter" {
		t.Errorf("Capture = %+v, want key/enter", cfg.Capture)
	}
	if len(cfg.Capture.Modifiers) != 1 || cfg.Capture.Modifiers[0] != "cmd" {
		t.Errorf("Capture.Modifiers = %v, want [cmd]", cfg.Capture.Modifiers)
	}
	if len(cfg.Hotkey.Toggle) != 2 || cfg.Hotkey.Toggle[0] != "alt" || cfg.Hotkey.Toggle[1] != "c" {
		t.Errorf("Hotkey.Toggle = %v, want [alt c]", cfg.Hotkey.Toggle)
	}
	if cfg.Feedback.Enabled {
		t.Error("Feedback.Enabled = true, want false")
	}
	if cfg.Feedback.Sound != "/tmp/click.wav" {
		t.Errorf("Feedback.Sound = %q, want %q", cfg.Feedback.Sound, "/tmp/click.wav")
	}
	if cfg.SendText != "hello" {
		t.Errorf("SendText = %q, want %q", cfg.SendText, "hello")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	yamlContent := `
ble:
  target_name: Other
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BLE.TargetName != "Other" {
		t.Errorf("BLE.TargetName = %q, want %q", cfg.BLE.TargetName, "Other")
	}
	if cfg.BLE.Trigger != "shoot" {
		t.Errorf("BLE.Trigger = %q, want default %q", cfg.BLE.Trigger, "shoot")
	}
	if cfg.Capture.Method != "screen" {
		t.Errorf("Capture.Method = %q, want default %q", cfg.Capture.Method, "screen")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
capture:
  dir: ~/shots
feedback:
  sound: ~/sounds/click.wav
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "shots"); cfg.Capture.Dir != want {
		t.Errorf("Capture.Dir = %q, want %q", cfg.Capture.Dir, want)
	}
	if want := filepath.Join(home, "sounds/click.wav"); cfg.Feedback.Sound != want {
		t.Errorf("Feedback.Sound = %q, want %q", cfg.Feedback.Sound, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := "ble:\n  timeouts:\n    scan: soon\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should reject an unparsable duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty target name",
			modify:  func(c *Config) { c.BLE.TargetName = "" },
			wantErr: true,
		},
		{
			name:    "empty trigger",
			modify:  func(c *Config) { c.BLE.Trigger = "" },
			wantErr: true,
		},
		{
			name:    "padded trigger",
			modify:  func(c *Config) { c.BLE.Trigger = " shoot" },
			wantErr: true,
		},
		{
			name:    "invalid backend",
			modify:  func(c *Config) { c.BLE.Backend = "bluez" },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.BLE.Timeouts.Connect = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative max write size",
			modify:  func(c *Config) { c.BLE.MaxWriteSize = -1 },
			wantErr: true,
		},
		{
			name:    "invalid capture method",
			modify:  func(c *Config) { c.Capture.Method = "camera" },
			wantErr: true,
		},
		{
			name:    "screen capture without dir",
			modify:  func(c *Config) { c.Capture.Dir = "" },
			wantErr: true,
		},
		{
			name:    "key capture without key",
			modify:  func(c *Config) { c.Capture.Method = "key"; c.Capture.Key = "" },
			wantErr: true,
		},
		{
			name:    "no capture",
			modify:  func(c *Config) { c.Capture.Method = "none"; c.Capture.Dir = "" },
			wantErr: false,
		},
		{
			name:    "empty toggle hotkey",
			modify:  func(c *Config) { c.Hotkey.Toggle = nil },
			wantErr: true,
		},
		{
			name:    "empty send hotkey",
			modify:  func(c *Config) { c.Hotkey.Send = nil },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultBackend(t *testing.T) {
	tests := []struct {
		lacksProperties bool
		want            string
	}{
		{true, "goble"},
		{false, "tinygo"},
	}

	saved := tinygoLacksProperties
	t.Cleanup(func() { tinygoLacksProperties = saved })

	for _, tt := range tests {
		tinygoLacksProperties = tt.lacksProperties
		if got := defaultBackend(); got != tt.want {
			t.Errorf("defaultBackend() with lacksProperties=%t = %q, want %q", tt.lacksProperties, got, tt.want)
		}
		if err := Default().Validate(); err != nil {
			t.Errorf("default config with lacksProperties=%t does not validate: %v", tt.lacksProperties, err)
		}
	}
}

func TestValidateTinyGoPropertyFallback(t *testing.T) {
	saved := tinygoLacksProperties
	t.Cleanup(func() { tinygoLacksProperties = saved })

	tests := []struct {
		name            string
		lacksProperties bool
		allow           bool
		wantErr         bool
	}{
		{"properties reported", false, false, false},
		{"fallback rejected", true, false, true},
		{"fallback opted in", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tinygoLacksProperties = tt.lacksProperties
			cfg := Default()
			cfg.BLE.Backend = "tinygo"
			cfg.BLE.AllowPropertyFallback = tt.allow
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "remote-shutter", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# remote-shutter") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.BLE.TargetName != "Revo" {
		t.Errorf("written config BLE.TargetName = %q, want %q", cfg.BLE.TargetName, "Revo")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written config error = %v", err)
	}
	if err := loaded.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "remote-shutter")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("ble:\n  target_name: Custom\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}
