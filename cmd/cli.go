// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"spectra/internal/config"
	"spectra/pkg/build"
)

// ParseArgs builds the configuration from defaults, an optional YAML file,
// environment overrides, and finally command line flags. Flags win because
// the loaded config provides each flag's default value.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	// --config has to be known before flag registration, since the file's
	// values become the flag defaults.
	options, err := config.LoadConfig(configPathArg(os.Args[1:]))
	if err != nil {
		return nil, err
	}

	var interactive bool

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum visualizer",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "list"
			if interactive {
				options.Command = "list-interactive"
			}
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Browse devices in an interactive picker")
	rootCmd.AddCommand(listCmd)

	// Audio input
	rootCmd.PersistentFlags().IntVarP(&options.Audio.InputDevice, "device", "d", options.Audio.InputDevice,
		"Input device ID. Use the 'list' command to see available devices")
	rootCmd.PersistentFlags().Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.Audio.Channels, "channels", "c", options.Audio.Channels,
		"Interleaved input channels (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Request low latency from the audio host")
	rootCmd.PersistentFlags().StringVarP(&options.Audio.File, "file", "f", options.Audio.File,
		"Play a WAV file instead of capturing an input device")
	rootCmd.PersistentFlags().Float64Var(&options.Audio.GateThreshold, "gate", options.Audio.GateThreshold,
		"Noise gate threshold in 0..1 (0 disables the gate)")

	// Analysis geometry
	rootCmd.PersistentFlags().IntVar(&options.Analysis.FFTSize, "fft-size", options.Analysis.FFTSize,
		"Analysis window length in samples (power of 2)")
	rootCmd.PersistentFlags().IntVarP(&options.Analysis.Bars, "bars", "n", options.Analysis.Bars,
		"Number of output spectrum bars")
	rootCmd.PersistentFlags().StringVarP(&options.Analysis.Window, "window", "w", options.Analysis.Window,
		"Window function (Hann, Hamming, Blackman, ...)")

	// Display ballistics
	rootCmd.PersistentFlags().Float64VarP(&options.Display.Gain, "gain", "g", options.Display.Gain,
		"Scale applied to raw magnitudes before clamping")
	rootCmd.PersistentFlags().Float64Var(&options.Display.Decay, "decay", options.Display.Decay,
		"Per-tick bar fall factor, in (0,1)")
	rootCmd.PersistentFlags().Float64Var(&options.Display.MaxHeight, "max-height", options.Display.MaxHeight,
		"Ceiling for a bar value")
	rootCmd.PersistentFlags().IntVar(&options.Display.RefreshRate, "refresh", options.Display.RefreshRate,
		"Render ticks per second")

	// Recording
	rootCmd.PersistentFlags().BoolVarP(&options.Recording.Enabled, "record", "r", options.Recording.Enabled,
		"Record the input stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&options.Recording.OutputFile, "output", "o", options.Recording.OutputFile,
		"Recording file name (default capture-YYYYMMDD-HHMMSS.wav)")

	// Render transports
	rootCmd.PersistentFlags().BoolVar(&options.Render.WebSocketEnabled, "websocket", options.Render.WebSocketEnabled,
		"Serve bar frames over a WebSocket endpoint")
	rootCmd.PersistentFlags().StringVar(&options.Render.WebSocketAddr, "websocket-addr", options.Render.WebSocketAddr,
		"WebSocket listen address")
	rootCmd.PersistentFlags().BoolVar(&options.Render.UDPEnabled, "udp", options.Render.UDPEnabled,
		"Send bar frames as UDP packets")
	rootCmd.PersistentFlags().StringVar(&options.Render.UDPTargetAddress, "udp-addr", options.Render.UDPTargetAddress,
		"UDP target address")
	rootCmd.PersistentFlags().BoolVar(&options.Render.LogPeaks, "log-peaks", options.Render.LogPeaks,
		"Debug-log the peak bar periodically")

	// Debug
	rootCmd.PersistentFlags().BoolVarP(&options.Debug, "verbose", "v", options.Debug,
		"Show verbose output")
	rootCmd.PersistentFlags().String("config", "",
		"Path to a YAML config file")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}

// configPathArg extracts the --config value from raw arguments, before
// cobra has parsed anything.
func configPathArg(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		const prefix = "--config="
		if len(arg) > len(prefix) && arg[:len(prefix)] == prefix {
			return arg[len(prefix):]
		}
	}
	return ""
}
