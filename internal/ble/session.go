package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SessionOptions configures the trigger token, phase timeouts and failure
// reporting of a Session. A zero timeout waits indefinitely.
type SessionOptions struct {
	Trigger                        string // notification text that fires the callback
	ScanTimeout                    time.Duration
	ConnectTimeout                 time.Duration
	ServiceDiscoveryTimeout        time.Duration
	CharacteristicDiscoveryTimeout time.Duration
	QueueSize                      int // pending event capacity before senders block

	// MaxWriteSize splits WriteValue text into writes of at most this many
	// bytes. Zero sends the text in a single write.
	MaxWriteSize int

	// Observer, if set, receives every failure the session swallows. It runs
	// on the session loop and must not block.
	Observer func(error)
}

// DefaultSessionOptions returns options with no timeouts and the "shoot" trigger.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Trigger:   DefaultTrigger,
		QueueSize: 64,
	}
}

type phase int

const (
	phaseIdle phase = iota
	phaseScan
	phaseConnect
	phaseServices
	phaseCharacteristics
)

func (p phase) String() string {
	switch p {
	case phaseScan:
		return "scan"
	case phaseConnect:
		return "connect"
	case phaseServices:
		return "service-discovery"
	case phaseCharacteristics:
		return "characteristic-discovery"
	default:
		return "idle"
	}
}

func (p phase) timeoutErr() error {
	switch p {
	case phaseScan:
		return fmt.Errorf("%w: %w", ErrScanTimeout, ErrNoMatchingPeripheral)
	case phaseConnect:
		return ErrConnectTimeout
	case phaseServices:
		return ErrServiceDiscoveryTimeout
	default:
		return ErrCharacteristicDiscoveryTimeout
	}
}

// Session is the GATT session with one named peripheral. Create one per
// process with NewSession and share it by reference.
//
// All state transitions happen on the goroutine running Run. Central
// callbacks and the public methods only enqueue work for that loop, so a
// manual SwitchBluetooth can never interleave with the automatic connect.
type Session struct {
	central Central
	target  string
	opts    SessionOptions

	events  chan func()
	done    chan struct{}
	started atomic.Bool

	connected atomic.Bool
	states    chan bool

	triggerMu sync.Mutex
	trigger   func()

	// Owned by the Run loop.
	adapter    AdapterState
	scanning   bool
	peripheral *Peripheral
	service    *Service
	writable   *Characteristic
	phase      phase
	timer      *time.Timer
	timerSeq   uint64
}

// Compile-time check that Session can receive Central events.
var _ EventSink = (*Session)(nil)

// NewSession creates a session that will connect to the peripheral
// advertising exactly targetName. Panics if central is nil (programmer error).
func NewSession(central Central, targetName string, opts SessionOptions) (*Session, error) {
	if central == nil {
		panic("ble: NewSession called with nil central")
	}
	if targetName == "" {
		return nil, fmt.Errorf("ble: target name must not be empty")
	}
	if opts.Trigger == "" {
		opts.Trigger = DefaultTrigger
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	return &Session{
		central: central,
		target:  targetName,
		opts:    opts,
		events:  make(chan func(), opts.QueueSize),
		done:    make(chan struct{}),
		states:  make(chan bool, 1),
	}, nil
}

// Target returns the advertised name this session connects to.
func (s *Session) Target() string {
	return s.target
}

// OnTrigger registers the callback fired when the trigger token arrives,
// replacing any previous one. Pass nil to drop triggers. The callback runs
// on the session loop; hand long work off to another goroutine.
func (s *Session) OnTrigger(fn func()) {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()
	s.trigger = fn
}

// Connected returns the current ConnectionState.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// States delivers ConnectionState changes. Only the latest unread value is
// kept.
func (s *Session) States() <-chan bool {
	return s.states
}

// WriteValue sends text to the writable characteristic without waiting for
// acknowledgement. It is a no-op until a writable characteristic is known.
func (s *Session) WriteValue(text string) {
	s.post(func() { s.write(text) })
}

// SwitchBluetooth disconnects from the held peripheral if connected, or
// reconnects to it otherwise.
func (s *Session) SwitchBluetooth() {
	s.post(s.toggle)
}

// Run starts the central and processes events until ctx is cancelled.
// It returns an error only if the central cannot be started.
func (s *Session) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("ble: session already running")
	}
	defer close(s.done)

	if err := s.central.Start(s); err != nil {
		slog.Error("[BLE] adapter unavailable", "error", err)
		s.report(fmt.Errorf("%w: %w", ErrAdapterUnavailable, err))
		return fmt.Errorf("ble: start central: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case fn := <-s.events:
			fn()
		}
	}
}

// post queues fn for the Run loop. It drops fn once the loop has exited.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

func (s *Session) AdapterStateChanged(state AdapterState) {
	s.post(func() { s.handleAdapterState(state) })
}

func (s *Session) PeripheralDiscovered(p Peripheral, rssi int) {
	s.post(func() { s.handleDiscovered(p, rssi) })
}

func (s *Session) PeripheralConnected(p Peripheral) {
	s.post(func() { s.handleConnected(p) })
}

func (s *Session) PeripheralDisconnected(p Peripheral) {
	s.post(func() { s.handleDisconnected(p) })
}

func (s *Session) ConnectFailed(p Peripheral, err error) {
	s.post(func() { s.handleConnectFailed(p, err) })
}

func (s *Session) ServicesDiscovered(p Peripheral, services []Service, err error) {
	s.post(func() { s.handleServices(p, services, err) })
}

func (s *Session) CharacteristicsDiscovered(svc Service, chars []Characteristic, err error) {
	s.post(func() { s.handleCharacteristics(svc, chars, err) })
}

func (s *Session) ValueUpdated(c Characteristic, value []byte) {
	buf := append([]byte(nil), value...)
	s.post(func() { s.handleValue(c, buf) })
}

func (s *Session) handleAdapterState(state AdapterState) {
	s.adapter = state
	if state != AdapterPoweredOn {
		slog.Warn("[BLE] bluetooth switched off or not initialized", "state", state)
		s.report(ErrAdapterUnavailable)
		if s.scanning {
			s.scanning = false
			if s.phase == phaseScan {
				s.disarm()
			}
		}
		return
	}

	slog.Info("[BLE] bluetooth on")
	if s.peripheral == nil {
		s.startScan()
	}
}

func (s *Session) handleDiscovered(p Peripheral, rssi int) {
	if s.peripheral != nil {
		return
	}
	if p.Name == "" || p.Name != s.target {
		slog.Debug("[BLE] ignoring peripheral", "name", p.Name, "id", p.ID, "rssi", rssi)
		return
	}

	s.stopScan()
	held := p
	s.peripheral = &held
	s.service = nil
	s.writable = nil

	if err := s.central.Connect(p); err != nil {
		slog.Error("[BLE] connect request failed", "name", p.Name, "id", p.ID, "error", err)
		s.peripheral = nil
		if s.adapter == AdapterPoweredOn {
			s.startScan()
		}
		return
	}
	s.setConnected(true)
	s.arm(phaseConnect, s.opts.ConnectTimeout)
	slog.Info("[BLE] connecting", "name", p.Name, "id", p.ID, "rssi", rssi)
}

func (s *Session) handleConnected(p Peripheral) {
	if !s.holds(p) {
		return
	}
	if s.phase == phaseConnect {
		s.disarm()
	}
	if !s.connected.Load() {
		// Switched off while the dial was in flight.
		slog.Info("[BLE] dropping link switched off during connect", "name", p.Name, "id", p.ID)
		if err := s.central.Disconnect(p); err != nil {
			slog.Warn("[BLE] disconnect request failed", "id", p.ID, "error", err)
		}
		return
	}
	slog.Info("[BLE] connected", "name", p.Name, "id", p.ID)

	if err := s.central.DiscoverServices(*s.peripheral); err != nil {
		slog.Error("[BLE] service discovery request failed", "error", err)
		return
	}
	s.arm(phaseServices, s.opts.ServiceDiscoveryTimeout)
}

func (s *Session) handleConnectFailed(p Peripheral, err error) {
	if !s.holds(p) {
		return
	}
	if s.phase == phaseConnect {
		s.disarm()
	}
	slog.Error("[BLE] connect failed", "name", p.Name, "id", p.ID, "error", err)
}

// handleDisconnected drops the GATT handles of the link but keeps the
// peripheral so SwitchBluetooth can reconnect. ConnectionState is left alone.
func (s *Session) handleDisconnected(p Peripheral) {
	if !s.holds(p) {
		return
	}
	if s.phase != phaseScan {
		s.disarm()
	}
	s.service = nil
	s.writable = nil
	slog.Info("[BLE] peripheral disconnected", "name", p.Name, "id", p.ID)
}

func (s *Session) handleServices(p Peripheral, services []Service, err error) {
	if !s.holds(p) {
		return
	}
	if s.phase == phaseServices {
		s.disarm()
	}
	if !s.connected.Load() {
		return
	}
	if err != nil {
		slog.Warn("[BLE] service discovery failed", "error", err)
		return
	}
	if len(services) == 0 {
		slog.Warn("[BLE] no services discovered", "id", p.ID)
		s.report(ErrDiscoveryEmpty)
		return
	}

	svc := services[0]
	s.service = &svc
	if err := s.central.DiscoverCharacteristics(svc); err != nil {
		slog.Error("[BLE] characteristic discovery request failed", "service", svc.UUID, "error", err)
		return
	}
	s.arm(phaseCharacteristics, s.opts.CharacteristicDiscoveryTimeout)
}

func (s *Session) handleCharacteristics(svc Service, chars []Characteristic, err error) {
	if s.service == nil || s.service.UUID != svc.UUID {
		return
	}
	if s.phase == phaseCharacteristics {
		s.disarm()
	}
	if err != nil {
		slog.Warn("[BLE] characteristic discovery failed", "service", svc.UUID, "error", err)
		return
	}

	for _, c := range chars {
		if s.writable == nil && c.Properties.Writable() {
			w := c
			s.writable = &w
			slog.Info("[BLE] writable characteristic", "uuid", c.UUID)
		}
		if err := s.central.SetNotify(c, true); err != nil {
			slog.Debug("[BLE] notify not enabled", "uuid", c.UUID, "error", err)
		}
	}
	if s.writable == nil {
		slog.Warn("[BLE] no writable characteristic", "service", svc.UUID)
	}
}

func (s *Session) handleValue(c Characteristic, value []byte) {
	text, ok := decodeNotification(value)
	if !ok {
		slog.Debug("[BLE] dropping undecodable notification", "uuid", c.UUID, "len", len(value))
		s.report(ErrDecodeFailure)
		return
	}
	slog.Debug("[BLE] notification", "uuid", c.UUID, "text", text)
	if text != s.opts.Trigger {
		return
	}

	s.triggerMu.Lock()
	fn := s.trigger
	s.triggerMu.Unlock()
	if fn == nil {
		slog.Debug("[BLE] trigger received with no callback registered")
		return
	}
	slog.Info("[BLE] trigger", "token", text)
	fn()
}

func (s *Session) write(text string) {
	if s.writable == nil || s.peripheral == nil {
		slog.Debug("[BLE] write dropped", "error", ErrWriteWithNoTarget)
		s.report(ErrWriteWithNoTarget)
		return
	}
	for _, part := range splitText(text, s.opts.MaxWriteSize) {
		if err := s.central.WriteWithoutResponse(*s.writable, []byte(part)); err != nil {
			slog.Warn("[BLE] write failed", "uuid", s.writable.UUID, "error", err)
			return
		}
	}
}

func (s *Session) toggle() {
	if s.peripheral == nil {
		slog.Warn("[BLE] toggle ignored, no peripheral discovered yet")
		return
	}
	p := *s.peripheral

	if s.connected.Load() {
		s.disarm()
		if err := s.central.Disconnect(p); err != nil {
			slog.Warn("[BLE] disconnect request failed", "id", p.ID, "error", err)
		}
		slog.Info("[BLE] disconnected", "name", p.Name)
	} else {
		if err := s.central.Connect(p); err != nil {
			slog.Warn("[BLE] connect request failed", "id", p.ID, "error", err)
		} else {
			s.arm(phaseConnect, s.opts.ConnectTimeout)
		}
		slog.Info("[BLE] connecting", "name", p.Name)
	}
	s.setConnected(!s.connected.Load())
}

func (s *Session) startScan() {
	if s.scanning {
		return
	}
	if err := s.central.StartScan(); err != nil {
		slog.Error("[BLE] start scan failed", "error", err)
		return
	}
	s.scanning = true
	s.arm(phaseScan, s.opts.ScanTimeout)
	slog.Info("[BLE] scanning", "target", s.target)
}

func (s *Session) stopScan() {
	if !s.scanning {
		return
	}
	if err := s.central.StopScan(); err != nil {
		slog.Warn("[BLE] stop scan failed", "error", err)
	}
	s.scanning = false
	if s.phase == phaseScan {
		s.disarm()
	}
}

// arm enters phase ph and, if d > 0, schedules its timeout.
func (s *Session) arm(ph phase, d time.Duration) {
	s.disarm()
	s.phase = ph
	if d <= 0 {
		return
	}
	seq := s.timerSeq
	s.timer = time.AfterFunc(d, func() {
		s.post(func() { s.expire(ph, seq) })
	})
}

// disarm leaves the current phase. A timeout already queued for it becomes
// stale and is ignored by expire.
func (s *Session) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
	s.phase = phaseIdle
}

// expire resets the automaton after phase ph ran out of time: the pending
// operation is cancelled, handles are released and scanning restarts.
func (s *Session) expire(ph phase, seq uint64) {
	if seq != s.timerSeq || ph != s.phase {
		return
	}
	s.timer = nil
	err := ph.timeoutErr()
	slog.Warn("[BLE] phase timed out", "phase", ph, "error", err)
	s.report(err)
	s.disarm()

	if ph == phaseScan {
		s.stopScan()
	} else if s.peripheral != nil {
		if err := s.central.Disconnect(*s.peripheral); err != nil {
			slog.Warn("[BLE] disconnect request failed", "id", s.peripheral.ID, "error", err)
		}
		s.peripheral = nil
		s.service = nil
		s.writable = nil
		s.setConnected(false)
	}

	if s.adapter == AdapterPoweredOn {
		s.startScan()
	}
}

func (s *Session) shutdown() {
	s.disarm()
	s.stopScan()
	if s.peripheral != nil && s.connected.Load() {
		if err := s.central.Disconnect(*s.peripheral); err != nil {
			slog.Warn("[BLE] disconnect on shutdown failed", "error", err)
		}
	}
}

func (s *Session) holds(p Peripheral) bool {
	return s.peripheral != nil && s.peripheral.ID == p.ID
}

func (s *Session) setConnected(v bool) {
	if s.connected.Swap(v) == v {
		return
	}
	select {
	case <-s.states:
	default:
	}
	s.states <- v
}

func (s *Session) report(err error) {
	if s.opts.Observer != nil {
		s.opts.Observer(err)
	}
}
