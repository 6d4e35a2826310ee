// SPDX-License-Identifier: MIT
/*
Package audio implements the producer side of the visualization pipeline:
live capture from a PortAudio input device, or WAV file playback that feeds
the same shared sample buffer while playing through the speakers.

Exactly one producer runs per process. Both paths down-mix interleaved
float32 frames to mono inside the buffer's Push, at device-driven cadence.

Thread Safety:
- Atomic flag for recording state
- Pre-allocated buffers, no allocation in the callback hot path
- The only lock the callback takes is the sample buffer's short mutex
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"spectra/internal/buffer"
	"spectra/internal/config"
	applog "spectra/internal/log"
)

// Engine captures audio from an input device and pushes it into the shared
// sample buffer. It optionally gates the noise floor and records the raw
// input to a WAV file.
type Engine struct {
	cfg  *config.Config
	ring *buffer.Ring

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Noise gate: blocks whose peak stays below the threshold are pushed
	// as silence so the display settles instead of dancing on the floor.
	gateEnabled   bool
	gateThreshold float32
	silence       []float32 // pre-allocated mono silence block

	// Recording state and buffers.
	isRecording int32 // atomic flag
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // reusable buffer for format conversion
	recScale    float64          // float32 [-1,1] to integer full scale
}

// NewEngine resolves the input device and prepares the capture engine.
// The stream is not opened until StartInputStream.
func NewEngine(cfg *config.Config, ring *buffer.Ring) (*Engine, error) {
	if ring == nil {
		return nil, fmt.Errorf("sample buffer cannot be nil")
	}

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		ring:          ring,
		inputDevice:   inputDevice,
		gateEnabled:   cfg.Audio.GateThreshold > 0,
		gateThreshold: float32(cfg.Audio.GateThreshold),
		silence:       make([]float32, framesPerCallback),
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return e, nil
}

// framesPerCallback is the block size requested from PortAudio. It only
// affects capture latency, not analysis resolution; the analyzer windows
// whatever the shared buffer has accumulated.
const framesPerCallback = 512

// StartInputStream opens and starts the PortAudio input stream. The first
// callback marks the start of the hot path.
func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: framesPerCallback,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	applog.Infof("audio: capturing from %q (%d ch @ %.0f Hz)",
		e.inputDevice.Name, e.cfg.Audio.Channels, e.cfg.Audio.SampleRate)
	return nil
}

// StopInputStream stops and closes the input stream if running.
func (e *Engine) StopInputStream() error {
	if e.inputStream == nil {
		return nil
	}
	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil
	return nil
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs on the PortAudio audio thread at device-driven cadence
// - Uses pre-allocated buffers only
// - The buffer push is the only lock taken; no unbounded work
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	channels := e.cfg.Audio.Channels
	if e.gateEnabled && blockPeak(in) < e.gateThreshold {
		e.pushSilence(len(in) / channels)
	} else {
		e.ring.Push(in, channels)
	}

	// Write to the WAV file if recording.
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		n := len(in)
		if n > cap(e.sampleBuf.Data) {
			n = cap(e.sampleBuf.Data)
		}
		e.sampleBuf.Data = e.sampleBuf.Data[:n]
		for i := 0; i < n; i++ {
			e.sampleBuf.Data[i] = int(float64(in[i]) * e.recScale)
		}

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			applog.Errorf("audio: error writing to WAV file: %v", err)
		}
	}
}

// pushSilence feeds frames mono zeros into the ring so gated blocks still
// advance the audio history.
func (e *Engine) pushSilence(frames int) {
	for frames > 0 {
		n := frames
		if n > len(e.silence) {
			n = len(e.silence)
		}
		e.ring.Push(e.silence[:n], 1)
		frames -= n
	}
}

// blockPeak returns the peak absolute sample of a block.
func blockPeak(in []float32) float32 {
	var peak float32
	for _, s := range in {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
