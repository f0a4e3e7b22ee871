// Package audio plays the shutter feedback sound: a WAV file decoded with
// go-audio/wav, or a synthesized click, rendered through malgo.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// Sound is interleaved signed 16-bit PCM.
type Sound struct {
	SampleRate uint32
	Channels   uint32
	Samples    []int16
}

// Duration returns the playing time of s.
func (s *Sound) Duration() time.Duration {
	if s.SampleRate == 0 || s.Channels == 0 {
		return 0
	}
	frames := len(s.Samples) / int(s.Channels)
	return time.Duration(frames) * time.Second / time.Duration(s.SampleRate)
}

// LoadWAV decodes a PCM WAV file of any bit depth into 16-bit samples.
func LoadWAV(path string) (*Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sound: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("decoding sound %s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding sound %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decoding sound %s: missing format", path)
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16(v, int(dec.BitDepth))
	}
	return &Sound{
		SampleRate: uint32(buf.Format.SampleRate),
		Channels:   uint32(buf.Format.NumChannels),
		Samples:    samples,
	}, nil
}

// toInt16 rescales a sample of the given bit depth to 16 bits. 8-bit WAV
// samples are unsigned.
func toInt16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	default:
		return int16(v)
	}
}

// Click synthesizes a 40ms mono shutter click: a decaying noise burst.
func Click(sampleRate uint32) *Sound {
	n := int(sampleRate) * 40 / 1000
	samples := make([]int16, n)
	seed := uint32(0x2545f491)
	for i := range samples {
		// xorshift32 noise
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		noise := float64(int32(seed)) / float64(math.MaxInt32)
		env := math.Exp(-float64(i) / (float64(n) / 6))
		samples[i] = int16(noise * env * 0.6 * math.MaxInt16)
	}
	return &Sound{SampleRate: sampleRate, Channels: 1, Samples: samples}
}

// pcmBytes encodes samples as little-endian bytes for a FormatS16 device.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
