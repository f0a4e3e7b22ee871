// Package capture provides the actions fired by the remote shutter: saving
// a screenshot into the photo directory or tapping a shutter key in the
// focused camera application, both through robotgo.
package capture

import (
	"fmt"
	"path/filepath"
	"time"
)

// Capturer takes one picture and returns where it was stored, or "" when
// the picture is owned by another application.
type Capturer interface {
	Capture() (string, error)
}

// New returns the Capturer for method ("screen", "key" or "none").
func New(method, dir, key string, modifiers []string) (Capturer, error) {
	switch method {
	case "screen":
		return NewScreenCapturer(dir), nil
	case "key":
		return NewKeyCapturer(key, modifiers), nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("capture: unknown method %q", method)
	}
}

// Nop is a Capturer that does nothing.
type Nop struct{}

func (Nop) Capture() (string, error) { return "", nil }

// shotName returns the file name for a picture taken at t.
func shotName(t time.Time) string {
	return "shot-" + t.Format("20060102-150405.000") + ".png"
}

// shotPath returns a path in dir for a picture taken at t.
func shotPath(dir string, t time.Time) string {
	return filepath.Join(dir, shotName(t))
}
