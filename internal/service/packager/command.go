package packager

import (
	"context"
	"fmt"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/logger"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional path to the YAML configuration (defaults to mullvad-packager.yaml).
	ConfigPath string
	// Platform selects the pipeline.
	Platform release.Platform
	// Architecture is the requested macOS architecture; ArchHost builds for the host.
	Architecture release.Architecture
	// Release selects release builds of the Windows native libraries.
	Release bool
	// NoCompression stores archive artifacts uncompressed.
	NoCompression bool
	// NoNotarization skips Apple notarization.
	NoNotarization bool
}

// Run loads the configuration and executes one platform pipeline.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "mullvad-packager")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	pkg, err := New(cfg)
	if err != nil {
		return fmt.Errorf("initialize packager: %w", err)
	}

	outcome, err := pkg.Build(ctx, &Request{
		Target: release.BuildTarget{
			Platform:     opts.Platform,
			Architecture: opts.Architecture,
			Release:      opts.Release,
		},
		NoCompression:  opts.NoCompression,
		NoNotarization: opts.NoNotarization,
	})
	if err != nil {
		return fmt.Errorf("packaging %s failed: %w", opts.Platform, err)
	}

	for _, artifact := range outcome.Artifacts {
		logger.InfoKV(ctx, "Artifact ready", "path", artifact)
	}

	return nil
}
