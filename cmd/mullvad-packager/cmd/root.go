package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/logger"
	"github.com/mullvad/desktop-packager/internal/service/packager"
	"github.com/mullvad/desktop-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the default info level.
	logLevel string
	// logFormat selects console or JSON log lines.
	logFormat string
	// noCompression stores archive artifacts uncompressed.
	noCompression bool

	macUniversal      bool
	macX64            bool
	macArm64          bool
	noAppleNotarizing bool

	winRelease bool

	// rootCmd represents the base command; the platform subcommands do the work.
	rootCmd = &cobra.Command{
		Use:          "mullvad-packager",
		Short:        "Package the Mullvad VPN desktop app into platform installers",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			format, ok := logger.ParseFormat(logFormat)
			if !ok {
				return fmt.Errorf("unknown log format %q", logFormat)
			}

			if format != logger.FormatConsole {
				logger.SetFormat(format)
			}

			if logLevel == "" {
				return nil
			}

			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}

	macCmd = &cobra.Command{
		Use:     "mac",
		Aliases: []string{"macos", "darwin"},
		Short:   "Build the signed and notarized macOS installer package",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&packager.Options{
				Platform:       release.MacOS,
				Architecture:   macArchitecture(),
				NoNotarization: noAppleNotarizing,
			})
		},
	}

	winCmd = &cobra.Command{
		Use:     "win",
		Aliases: []string{"windows"},
		Short:   "Build the Windows installer",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&packager.Options{
				Platform: release.Windows,
				Release:  winRelease,
			})
		},
	}

	linuxCmd = &cobra.Command{
		Use:   "linux",
		Short: "Build the Linux application image",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&packager.Options{Platform: release.Linux})
		},
	}
)

// Execute runs the mullvad-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(options *packager.Options) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options.ConfigPath = configPath
	options.NoCompression = noCompression

	return packager.Run(ctx, options)
}

func macArchitecture() release.Architecture {
	switch {
	case macUniversal:
		return release.ArchUniversal
	case macX64:
		return release.ArchX64
	case macArm64:
		return release.ArchArm64
	default:
		return release.ArchHost
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present, built-in defaults otherwise)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", string(logger.FormatConsole), "log format (console, json)")
	flags.BoolVar(&noCompression, "no-compression", false, "store archive artifacts without compression")

	macCmd.Flags().BoolVar(&macUniversal, "universal", false, "build a universal x86_64 and arm64 package")
	macCmd.Flags().BoolVar(&macX64, "x64", false, "build for x86_64 only")
	macCmd.Flags().BoolVar(&macArm64, "arm64", false, "build for arm64 only")
	macCmd.Flags().BoolVar(&noAppleNotarizing, "no-apple-notarization", false, "skip Apple notarization")
	macCmd.MarkFlagsMutuallyExclusive("universal", "x64", "arm64")

	winCmd.Flags().BoolVar(&winRelease, "release", false, "use release builds of the native libraries")

	rootCmd.AddCommand(macCmd, winCmd, linuxCmd)
}
