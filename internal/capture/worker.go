package capture

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs captures one at a time off the caller's goroutine, so a
// trigger arriving on the BLE event loop never waits for the screen grab.
type Worker struct {
	capturer   Capturer
	onCaptured func(path string)
	reqs       chan time.Time
}

// NewWorker creates a worker holding up to queue pending captures.
// onCaptured, if non-nil, runs after every successful capture.
func NewWorker(c Capturer, queue int, onCaptured func(path string)) *Worker {
	if c == nil {
		panic("capture: NewWorker called with nil capturer")
	}
	if queue <= 0 {
		queue = 8
	}
	return &Worker{
		capturer:   c,
		onCaptured: onCaptured,
		reqs:       make(chan time.Time, queue),
	}
}

// Trigger requests a capture. Every call is queued; when the queue is full
// the request is dropped with a warning.
func (w *Worker) Trigger() {
	select {
	case w.reqs <- time.Now():
	default:
		slog.Warn("[CAPTURE] queue full, dropping shutter request")
	}
}

// Run processes requests until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-w.reqs:
			w.capture(at)
		}
	}
}

func (w *Worker) capture(requested time.Time) {
	start := time.Now()
	path, err := w.capturer.Capture()
	if err != nil {
		slog.Error("[CAPTURE] capture failed", "error", err)
		return
	}
	slog.Info("[CAPTURE] picture taken",
		"path", path,
		"latency", time.Since(requested).Round(time.Millisecond),
		"took", time.Since(start).Round(time.Millisecond))
	if w.onCaptured != nil {
		w.onCaptured(path)
	}
}
