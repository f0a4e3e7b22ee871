// Package hotkey provides global hotkeys using gohook. They stand in for
// the buttons of the shutter app: one toggles the BLE connection, the other
// sends text to the peripheral and takes a picture.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Action identifies which binding fired.
type Action int

const (
	// ActionToggle connects to or disconnects from the peripheral.
	ActionToggle Action = iota
	// ActionSend writes the configured text and takes a picture.
	ActionSend
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionSend:
		return "send"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Event is emitted on the channel returned by Events.
type Event struct {
	Action Action
}

// Binding maps a key combo to an action. Keys are lowercase gohook key
// names (e.g., ["ctrl", "shift", "b"]).
type Binding struct {
	Action Action
	Keys   []string
}

// Listener manages the global hotkeys and emits an event per key press.
type Listener struct {
	bindings []Binding
	ch       chan Event
	done     chan struct{}
	once     sync.Once
}

// NewListener creates a Listener for the given bindings.
func NewListener(bindings ...Binding) *Listener {
	return &Listener{
		bindings: bindings,
		ch:       make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the channel that receives hotkey events.
// The channel is closed when the listener stops.
func (l *Listener) Events() <-chan Event {
	return l.ch
}

// Start registers every binding and listens for key presses.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	for _, b := range l.bindings {
		action := b.Action
		hook.Register(hook.KeyDown, b.Keys, func(e hook.Event) {
			l.emit(action)
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

// emit queues an event without blocking the hook goroutine.
func (l *Listener) emit(a Action) {
	select {
	case l.ch <- Event{Action: a}:
	default: // don't block if channel is full
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}

// FormatCombo renders keys as a combo string like "ctrl+shift+b".
func FormatCombo(keys []string) string {
	return strings.Join(keys, "+")
}
