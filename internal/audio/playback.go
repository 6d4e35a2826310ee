// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectra/internal/buffer"
	"spectra/internal/config"
	applog "spectra/internal/log"
)

// Player streams a decoded WAV file to an output device while pushing the
// same frames into the shared sample buffer, so the display analyzes exactly
// what the speakers play. Playback loops until the player is closed.
type Player struct {
	cfg  *config.Config
	ring *buffer.Ring

	samples     []float32 // interleaved source frames, normalized to [-1,1]
	srcChannels int
	srcRate     int
	outChannels int // stream channel count, set by Start
	pos         int // current frame index into samples

	outputStream *portaudio.Stream
}

// NewPlayer decodes the WAV file at path and prepares an output player.
// The stream is not opened until Start.
func NewPlayer(cfg *config.Config, ring *buffer.Ring, path string) (*Player, error) {
	if ring == nil {
		return nil, fmt.Errorf("sample buffer cannot be nil")
	}

	samples, channels, rate, err := LoadWAV(path)
	if err != nil {
		return nil, err
	}

	return &Player{
		cfg:         cfg,
		ring:        ring,
		samples:     samples,
		srcChannels: channels,
		srcRate:     rate,
	}, nil
}

// LoadWAV decodes an entire WAV file into normalized float32 samples.
// Returns the interleaved samples, channel count, and sample rate.
func LoadWAV(path string) ([]float32, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode WAV data: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("WAV file has no usable format: %s", path)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	frames := len(samples) / buf.Format.NumChannels
	if frames == 0 {
		return nil, 0, 0, fmt.Errorf("WAV file contains no frames: %s", path)
	}

	return samples, buf.Format.NumChannels, int(decoder.SampleRate), nil
}

// SampleRate returns the source file's sample rate in Hz.
func (p *Player) SampleRate() float64 { return float64(p.srcRate) }

// Channels returns the source file's channel count.
func (p *Player) Channels() int { return p.srcChannels }

// Duration returns the length of one playback loop.
func (p *Player) Duration() time.Duration {
	frames := len(p.samples) / p.srcChannels
	return time.Duration(float64(frames) / float64(p.srcRate) * float64(time.Second))
}

// Start opens the default output device at the file's native rate and
// channel count and begins playback.
func (p *Player) Start() error {
	outDevice, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return fmt.Errorf("failed to get default output device: %w", err)
	}

	p.outChannels = p.srcChannels
	if p.outChannels > outDevice.MaxOutputChannels {
		p.outChannels = outDevice.MaxOutputChannels
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: p.outChannels,
			Device:   outDevice,
			Latency:  outDevice.DefaultHighOutputLatency,
		},
		FramesPerBuffer: framesPerCallback,
		SampleRate:      float64(p.srcRate),
	}

	stream, err := portaudio.OpenStream(params, p.processOutputStream)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	p.outputStream = stream

	if err := p.outputStream.Start(); err != nil {
		p.outputStream.Close()
		p.outputStream = nil
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	applog.Infof("audio: playing %d ch @ %d Hz, %s per loop",
		p.srcChannels, p.srcRate, p.Duration().Round(time.Millisecond))
	return nil
}

// processOutputStream is the playback callback. It delegates to fill so the
// frame mapping can be tested without a device.
func (p *Player) processOutputStream(out []float32) {
	p.fill(out, len(out)/p.outChannels)
}

// fill writes frames of source audio into dst, interleaved to the
// destination channel count, looping the source. Each consumed source run is
// also pushed into the shared buffer, which down-mixes it to mono. Source
// channels beyond the destination count are dropped; a mono source is copied
// to every destination channel.
func (p *Player) fill(dst []float32, frames int) {
	if frames <= 0 {
		return
	}
	dstChannels := len(dst) / frames
	srcFrames := len(p.samples) / p.srcChannels

	f := 0
	for f < frames {
		if p.pos >= srcFrames {
			p.pos = 0 // loop
		}
		run := srcFrames - p.pos
		if run > frames-f {
			run = frames - f
		}
		seg := p.samples[p.pos*p.srcChannels : (p.pos+run)*p.srcChannels]

		for i := 0; i < run; i++ {
			src := seg[i*p.srcChannels : (i+1)*p.srcChannels]
			for ch := 0; ch < dstChannels; ch++ {
				dst[(f+i)*dstChannels+ch] = src[ch%p.srcChannels]
			}
		}
		p.ring.Push(seg, p.srcChannels)

		p.pos += run
		f += run
	}
}

// Close stops and closes the output stream.
func (p *Player) Close() error {
	if p.outputStream == nil {
		return nil
	}
	if err := p.outputStream.Stop(); err != nil {
		return err
	}
	if err := p.outputStream.Close(); err != nil {
		return err
	}
	p.outputStream = nil
	return nil
}
