package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Player renders Sounds on the default output device. Plays are
// serialized.
type Player struct {
	ctx *malgo.AllocatedContext

	mu sync.Mutex // held for the duration of a Play
}

// NewPlayer creates a new audio player. Call Close() when done.
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &Player{ctx: ctx}, nil
}

// Play blocks until s has been rendered.
func (p *Player) Play(s *Sound) error {
	if s == nil || len(s.Samples) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceCfg.Playback.Format = malgo.FormatS16
	deviceCfg.Playback.Channels = s.Channels
	deviceCfg.SampleRate = s.SampleRate

	r := &pcmReader{pcm: pcmBytes(s.Samples), done: make(chan struct{})}
	callbacks := malgo.DeviceCallbacks{
		Data: r.onData,
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return fmt.Errorf("initializing playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("starting playback device: %w", err)
	}

	select {
	case <-r.done:
	case <-time.After(s.Duration() + time.Second):
		return fmt.Errorf("playback did not finish")
	}
	return nil
}

// Close releases all audio resources.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		if err := p.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		p.ctx.Free()
		p.ctx = nil
	}
	return nil
}

// pcmReader feeds a fixed PCM buffer to the malgo data callback.
type pcmReader struct {
	pcm  []byte
	pos  int
	done chan struct{}
	once sync.Once
}

// onData is the malgo callback invoked when the device wants more frames.
// Past the end of the buffer it writes silence.
func (r *pcmReader) onData(pOutput, _ []byte, _ uint32) {
	n := copy(pOutput, r.pcm[r.pos:])
	r.pos += n
	clear(pOutput[n:])
	if r.pos >= len(r.pcm) {
		r.once.Do(func() { close(r.done) })
	}
}
