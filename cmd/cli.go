package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"tuner/internal/config"
)

// ParseArgs builds the runtime configuration. File and environment values
// are loaded first and become the flag defaults, so command line flags win.
func ParseArgs() (*config.Config, error) {
	options, err := config.Load("")
	if err != nil {
		return nil, err
	}

	rootCmd := &cobra.Command{
		Use:           "tuner",
		Short:         "Chromatic instrument tuner for the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.TUIMode = true
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	// Audio device configuration
	rootCmd.PersistentFlags().IntVarP(&options.DeviceID, "device", "d", options.DeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&options.Channels, "channels", "c", options.Channels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&options.SampleRate, "sample-rate", "s", options.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&options.FramesPerBuffer, "frames-per-buffer", "b", options.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&options.LowLatency, "low-latency", "l", options.LowLatency,
		"Use low latency mode for real-time processing")

	// Analysis configuration
	rootCmd.PersistentFlags().StringVarP(&options.Window, "window", "w", options.Window,
		"Analysis window function (hann, hamming, blackman)")

	// Recording configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Record, "record", "r", options.Record,
		"Record audio from the specified input device")
	rootCmd.PersistentFlags().StringVarP(&options.OutputFile, "output", "o", options.OutputFile,
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Broadcast configuration
	rootCmd.PersistentFlags().StringVar(&options.ServeAddr, "serve", options.ServeAddr,
		"Address to broadcast readings on over websocket (e.g. :8080), empty disables")

	// Debug configuration
	rootCmd.PersistentFlags().BoolVarP(&options.Verbose, "verbose", "v", options.Verbose,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if options.OutputFile == "" {
		options.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}
