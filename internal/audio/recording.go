// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording begins writing the raw input stream to a WAV file at the
// configured bit depth. An empty filename auto-generates a timestamped name.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	bitDepth := e.cfg.Recording.BitDepth
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported recording bit depth %d", bitDepth)
	}

	if filename == "" {
		filename = fmt.Sprintf("capture-%s.wav", time.Now().Format("20060102-150405"))
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.cfg.Audio.SampleRate),
		bitDepth, e.cfg.Audio.Channels, 1)

	// Full-scale factor for converting float32 [-1,1] samples to the
	// encoder's signed integer range.
	e.recScale = float64(int(1)<<(bitDepth-1) - 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.cfg.Audio.Channels,
			SampleRate:  int(e.cfg.Audio.SampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, framesPerCallback*e.cfg.Audio.Channels),
	}

	atomic.StoreInt32(&e.isRecording, 1)

	return nil
}

// StopRecording finalizes the WAV header and closes the output file.
func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// Close stops recording (if active) and the input stream.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	return e.StopInputStream()
}
