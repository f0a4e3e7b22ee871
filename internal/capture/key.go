package capture

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// KeyCapturer taps a key combo so the focused camera app takes the picture.
type KeyCapturer struct {
	key       string
	modifiers []string
	tap       func(key string, modifiers []string) error
}

// Compile-time interface satisfaction check.
var _ Capturer = (*KeyCapturer)(nil)

// NewKeyCapturer creates a capturer pressing key with optional modifiers
// (e.g. "space", or "s" with ["cmd"]).
func NewKeyCapturer(key string, modifiers []string) *KeyCapturer {
	return &KeyCapturer{
		key:       key,
		modifiers: modifiers,
		tap:       robotTap,
	}
}

// Capture taps the configured key. The picture belongs to the focused app.
func (k *KeyCapturer) Capture() (string, error) {
	if err := k.tap(k.key, k.modifiers); err != nil {
		return "", fmt.Errorf("capture: key tap %s: %w", k.key, err)
	}
	return "", nil
}

func robotTap(key string, modifiers []string) error {
	args := make([]interface{}, len(modifiers))
	for i, m := range modifiers {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}
