// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"spectra/cmd"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/buffer"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/pipeline"
	"spectra/internal/render"
	"spectra/internal/tui"
	"spectra/pkg/build"
)

// main is the entry point for the spectrum visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the audio producer (device capture or WAV playback)
//   - Start the analysis pipeline driver and its renderers
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the pipeline, producers, and renderers
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	// Limit OS threads for real-time audio processing:
	// one for the audio callback, one for the tick loop and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	} else if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// One-off commands run without the pipeline.
	if cfg.Command != "" {
		if err := executeCommand(cfg); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run builds the pipeline, starts a producer, and blocks until a
// termination signal arrives.
func run(cfg *config.Config) error {
	ring, err := buffer.New(cfg.Analysis.BufferCapacity)
	if err != nil {
		return err
	}

	windowType, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return err
	}

	// A played file dictates the rate the analyzer must assume.
	sampleRate := cfg.Audio.SampleRate

	var producer interface{ Close() error }
	var engine *audio.Engine

	if cfg.Audio.File != "" {
		player, err := audio.NewPlayer(cfg, ring, cfg.Audio.File)
		if err != nil {
			return err
		}
		sampleRate = player.SampleRate()
		producer = player
		defer producer.Close()

		// ============ CONCURRENT PHASE (Hot Path) begins here ============
		if err := player.Start(); err != nil {
			return err
		}
	} else {
		engine, err = audio.NewEngine(cfg, ring)
		if err != nil {
			return err
		}
		producer = engine
		defer producer.Close()

		// ============ CONCURRENT PHASE (Hot Path) begins here ============
		if err := engine.StartInputStream(); err != nil {
			return err
		}
		if cfg.Recording.Enabled {
			if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
				return err
			}
		}
	}

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis.FFTSize, cfg.Analysis.Bars, sampleRate, windowType)
	if err != nil {
		return err
	}
	smoother, err := analysis.NewSmoother(cfg.Analysis.Bars, cfg.Display.Gain, cfg.Display.MaxHeight, cfg.Display.Decay)
	if err != nil {
		return err
	}

	renderers, err := buildRenderers(cfg)
	if err != nil {
		return err
	}

	interval := time.Second / time.Duration(cfg.Display.RefreshRate)
	driver, err := pipeline.NewDriver(ring, analyzer, smoother, interval, renderers...)
	if err != nil {
		return err
	}

	driver.Start()
	applog.Infof("pipeline running: %d bars at %d Hz refresh, Ctrl+C to stop",
		cfg.Analysis.Bars, cfg.Display.RefreshRate)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := driver.Close(); err != nil {
		applog.Errorf("error closing pipeline: %v", err)
	}

	if engine != nil && cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	return nil
}

// buildRenderers assembles the enabled render surfaces. With nothing
// enabled, a log renderer keeps the pipeline observable.
func buildRenderers(cfg *config.Config) ([]render.Renderer, error) {
	var renderers []render.Renderer

	if cfg.Render.WebSocketEnabled {
		renderers = append(renderers, render.NewWebSocketRenderer(cfg.Render.WebSocketAddr))
	}
	if cfg.Render.UDPEnabled {
		udp, err := render.NewUDPRenderer(cfg.Render.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, udp)
	}
	if cfg.Render.LogPeaks || len(renderers) == 0 {
		renderers = append(renderers, render.NewLogRenderer(cfg.Display.RefreshRate))
	}

	return renderers, nil
}

// executeCommand handles one-off commands that run without the pipeline.
func executeCommand(cfg *config.Config) error {
	switch cfg.Command {
	case "list":
		return audio.ListDevices()
	case "list-interactive":
		selection, err := tui.BrowseDevices()
		if err != nil {
			return err
		}
		if !selection.Confirmed {
			return nil
		}
		fmt.Printf("Selected [%d] %s at %.0f Hz\n",
			selection.DeviceID, selection.DeviceName, selection.SampleRate)
		fmt.Printf("Run: %s --device %d --sample-rate %.0f\n",
			build.GetBuildFlags().Name, selection.DeviceID, selection.SampleRate)
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}
}
