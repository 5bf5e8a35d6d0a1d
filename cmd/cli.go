// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"spectro/internal/config"
	"spectro/pkg/build"
)

// ParseArgs builds the runtime configuration from, in order of increasing
// precedence: defaults, the YAML config file, environment overrides, and
// command line flags. Flags only override values the user actually set.
func ParseArgs() (*config.Config, error) {
	info := build.GetInfo()

	var (
		cfg        *config.Config
		configPath string
		flags      = config.NewConfig()
	)

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         info.Description,
		Version:       info.Summary(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			set := cmd.Flags()
			if set.Changed("file") {
				loaded.Source.File = flags.Source.File
			}
			if set.Changed("device") {
				loaded.Source.DeviceID = flags.Source.DeviceID
			}
			if set.Changed("channel") {
				loaded.Source.Channel = flags.Source.Channel
			}
			if set.Changed("window") {
				loaded.Spectral.WindowSeconds = flags.Spectral.WindowSeconds
			}
			if set.Changed("interval") {
				loaded.Spectral.Interval = flags.Spectral.Interval
			}
			if set.Changed("alpha") {
				loaded.Spectral.Alpha = flags.Spectral.Alpha
			}
			if set.Changed("recording-dir") {
				loaded.Recording.Dir = flags.Recording.Dir
			}
			if set.Changed("verbose") {
				loaded.Debug = flags.Debug
			}

			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Source selection
	rootCmd.PersistentFlags().StringVarP(&flags.Source.File, "file", "f", "",
		"WAV file to analyze. Omit to capture from an input device.")
	rootCmd.PersistentFlags().IntVarP(&flags.Source.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&flags.Source.Channel, "channel", "c", config.DefaultChannel,
		"Channel of a multi-channel file (1-indexed, 0 uses the first)")

	// Spectral estimation
	rootCmd.PersistentFlags().Float64VarP(&flags.Spectral.WindowSeconds, "window", "w", config.DefaultWindowSeconds,
		"FFT window length in seconds, clamped to (0, 1]")
	rootCmd.PersistentFlags().Float64VarP(&flags.Spectral.Interval, "interval", "i", config.DefaultInterval,
		"Cadence between spectral estimates, in seconds")
	rootCmd.PersistentFlags().Float64VarP(&flags.Spectral.Alpha, "alpha", "a", config.DefaultAlpha,
		"Tukey taper alpha, clamped to [0, 1] (0 disables the taper)")

	// Operation
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flags.Recording.Dir, "recording-dir", config.DefaultRecordingDir,
		"Directory for per-worker recording files")
	rootCmd.PersistentFlags().BoolVarP(&flags.Debug, "verbose", "v", config.DefaultVerbosity,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}
