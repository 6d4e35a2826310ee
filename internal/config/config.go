// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"spectra/pkg/bitint"
)

// Core defaults and limits for the visualization pipeline. All of these are
// fixed for a process run; changing them requires restart.
const (
	// Audio input defaults
	DefaultChannels   = 2     // Interleaved stereo from the device
	DefaultDeviceID   = -1    // -1 selects the system default device
	DefaultSampleRate = 44100 // CD-quality audio
	DefaultLowLatency = false // Standard latency mode

	// Analysis defaults
	DefaultFFTSize        = 2048 // Samples per analysis window (power of 2)
	DefaultBars           = 88   // Piano-width bar count
	DefaultWindow         = "Hann"
	DefaultBufferCapacity = 8192 // Mono samples retained, several FFT windows

	// Display ballistics
	DefaultGain        = 6.0  // Scale applied to raw magnitudes
	DefaultDecay       = 0.88 // Per-tick multiplicative fall, must be in (0,1)
	DefaultMaxHeight   = 2.0  // Clip-space ceiling for a bar
	DefaultRefreshRate = 60   // Render ticks per second

	// Hardware limits
	MinDeviceID   = -1
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
)

// Config holds all runtime configuration for the pipeline. It is built from
// defaults, optionally a YAML file, environment overrides, and finally
// command line flags.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Verbose logging and debug features
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
	Command  string `yaml:"-"`         // One-off command (e.g. "list"), never persisted

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Display   DisplayConfig   `yaml:"display"`
	Recording RecordingConfig `yaml:"recording"`
	Render    RenderConfig    `yaml:"render"`
}

// AudioConfig holds input capture and file playback settings.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`   // PortAudio device index (-1 for default)
	SampleRate    float64 `yaml:"sample_rate"`    // Hz
	Channels      int     `yaml:"channels"`       // Interleaved channels delivered by the device
	LowLatency    bool    `yaml:"low_latency"`    // Request low latency from PortAudio
	File          string  `yaml:"file"`           // WAV path; non-empty selects playback mode
	GateThreshold float64 `yaml:"gate_threshold"` // Block peak below this is pushed as silence; 0 disables
}

// AnalysisConfig holds the spectral analysis geometry.
type AnalysisConfig struct {
	FFTSize        int    `yaml:"fft_size"`        // Analysis window length (power of 2)
	Bars           int    `yaml:"bars"`            // Output bar count
	Window         string `yaml:"window"`          // Window function name ("Hann", "Hamming", ...)
	BufferCapacity int    `yaml:"buffer_capacity"` // Shared sample buffer capacity
}

// DisplayConfig holds the smoothing ballistics and tick rate.
type DisplayConfig struct {
	Gain        float64 `yaml:"gain"`
	Decay       float64 `yaml:"decay"`
	MaxHeight   float64 `yaml:"max_height"`
	RefreshRate int     `yaml:"refresh_rate"` // Render ticks per second
}

// RecordingConfig holds optional WAV capture of the input stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // Empty means auto-generated name
	BitDepth   int    `yaml:"bit_depth"`   // 16, 24, or 32
}

// RenderConfig holds the output surfaces fed by the pipeline driver.
type RenderConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`
	WebSocketAddr    string `yaml:"websocket_addr"` // e.g. ":8080"
	UDPEnabled       bool   `yaml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090"
	LogPeaks         bool   `yaml:"log_peaks"`          // Debug-log the peak bar each tick
}

// NewConfig returns a Config populated with defaults. This is the base
// before applying file, environment, or flag overrides.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:   DefaultDeviceID,
			SampleRate:    DefaultSampleRate,
			Channels:      DefaultChannels,
			LowLatency:    DefaultLowLatency,
			GateThreshold: 0,
		},
		Analysis: AnalysisConfig{
			FFTSize:        DefaultFFTSize,
			Bars:           DefaultBars,
			Window:         DefaultWindow,
			BufferCapacity: DefaultBufferCapacity,
		},
		Display: DisplayConfig{
			Gain:        DefaultGain,
			Decay:       DefaultDecay,
			MaxHeight:   DefaultMaxHeight,
			RefreshRate: DefaultRefreshRate,
		},
		Recording: RecordingConfig{
			Enabled:  false,
			BitDepth: 16,
		},
		Render: RenderConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			LogPeaks:         false,
		},
	}
}

// Validate enforces every configuration invariant the pipeline depends on.
// A failure here is fatal at startup; the numeric behavior of the analyzer
// and smoother is undefined outside these bounds.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of 2, got %d", c.Analysis.FFTSize)
	}
	if c.Analysis.Bars <= 0 {
		return fmt.Errorf("analysis.bars must be positive, got %d", c.Analysis.Bars)
	}
	if c.Analysis.Bars > c.Analysis.FFTSize/2 {
		return fmt.Errorf("analysis.bars (%d) cannot exceed half the FFT size (%d)",
			c.Analysis.Bars, c.Analysis.FFTSize/2)
	}
	if c.Analysis.BufferCapacity < c.Analysis.FFTSize {
		return fmt.Errorf("analysis.buffer_capacity (%d) must hold at least one FFT window (%d)",
			c.Analysis.BufferCapacity, c.Analysis.FFTSize)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g",
			MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be at least 1, got %d", c.Audio.Channels)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Display.Decay <= 0 || c.Display.Decay >= 1 {
		return fmt.Errorf("display.decay must lie in (0,1), got %g", c.Display.Decay)
	}
	if c.Display.Gain <= 0 {
		return fmt.Errorf("display.gain must be positive, got %g", c.Display.Gain)
	}
	if c.Display.MaxHeight <= 0 {
		return fmt.Errorf("display.max_height must be positive, got %g", c.Display.MaxHeight)
	}
	if c.Display.RefreshRate <= 0 {
		return fmt.Errorf("display.refresh_rate must be positive, got %d", c.Display.RefreshRate)
	}
	if c.Recording.Enabled {
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth must be 16, 24, or 32, got %d", c.Recording.BitDepth)
		}
	}
	if c.Render.UDPEnabled && c.Render.UDPTargetAddress == "" {
		return fmt.Errorf("render.udp_target_address must be set when UDP is enabled")
	}
	if c.Render.WebSocketEnabled && c.Render.WebSocketAddr == "" {
		return fmt.Errorf("render.websocket_addr must be set when the WebSocket renderer is enabled")
	}
	return nil
}
