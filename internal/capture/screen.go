package capture

import (
	"fmt"
	"os"
	"time"

	"github.com/go-vgo/robotgo"
)

// ScreenCapturer saves a screenshot of the main display as a PNG.
type ScreenCapturer struct {
	dir  string
	now  func() time.Time
	save func(path string) error
}

// Compile-time interface satisfaction check.
var _ Capturer = (*ScreenCapturer)(nil)

// NewScreenCapturer creates a capturer writing into dir. The directory is
// created on first capture.
func NewScreenCapturer(dir string) *ScreenCapturer {
	return &ScreenCapturer{
		dir:  dir,
		now:  time.Now,
		save: func(path string) error { return robotgo.SaveCapture(path) },
	}
}

// Capture grabs the screen and returns the written file path.
func (s *ScreenCapturer) Capture() (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("capture: create %s: %w", s.dir, err)
	}
	path := shotPath(s.dir, s.now())
	if err := s.save(path); err != nil {
		return "", fmt.Errorf("capture: save screenshot: %w", err)
	}
	return path, nil
}
