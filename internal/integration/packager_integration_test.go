package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/manifest"
	"github.com/mullvad/desktop-packager/internal/repository/report"
	"github.com/mullvad/desktop-packager/internal/service/packager"
)

// checkout is a temporary repository with a prebuilt Linux executable, a
// resource manifest and a configuration file pointing at both.
type checkout struct {
	root       string
	configPath string
	output     string
}

func newCheckout(t *testing.T, resources []release.ResourceMapping) *checkout {
	t.Helper()

	root := t.TempDir()

	writeFile(t, filepath.Join(root, "dist-assets", "mullvad-vpn"), "ELF executable")

	manifestPath := filepath.Join(root, "manifest.yaml")
	writeYAML(t, manifestPath, map[string]any{"resources": resources})

	cfg := config.Config{
		App: config.App{Version: "2025.3"},
		Paths: config.Paths{
			Root:     root,
			Manifest: manifestPath,
		},
		Targets: config.Targets{
			Linux: config.Target{Kind: config.TargetArchive},
		},
	}

	configPath := filepath.Join(root, config.DefaultConfigFilename)
	writeYAML(t, configPath, cfg)

	return &checkout{
		root:       root,
		configPath: configPath,
		output:     filepath.Join(root, "dist"),
	}
}

func linuxResources() []release.ResourceMapping {
	return []release.ResourceMapping{
		{Source: "dist-assets/linux/" + manifest.LauncherScript, Destination: ".", Scope: release.ScopeLinux, Kind: release.KindFile},
		{Source: "dist-assets/relays.json", Destination: ".", Scope: release.ScopeShared},
		{Source: "dist-assets/mullvad-daemon", Destination: ".", Scope: release.ScopeLinux},
		{Source: "dist-assets/mullvad.exe", Destination: ".", Scope: release.ScopeWindows},
	}
}

// TestRun_LinuxFromConfigFile packages a Linux image driven only by files on disk.
func TestRun_LinuxFromConfigFile(t *testing.T) {
	t.Parallel()

	c := newCheckout(t, linuxResources())
	writeFile(t, filepath.Join(c.root, "dist-assets", "linux", manifest.LauncherScript), "#!/bin/sh\n")
	writeFile(t, filepath.Join(c.root, "dist-assets", "relays.json"), "{}")
	writeFile(t, filepath.Join(c.root, "dist-assets", "mullvad-daemon"), "daemon")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := packager.Run(ctx, &packager.Options{
		ConfigPath:   c.configPath,
		Platform:     release.Linux,
		Architecture: release.ArchX64,
	})
	require.NoError(t, err)

	artifact := filepath.Join(c.output, "MullvadVPN-2025.3_x64.tar.gz")
	require.FileExists(t, artifact)

	appOutDir := filepath.Join(c.output, "linux-unpacked")
	require.FileExists(t, filepath.Join(appOutDir, packager.InternalExecutableName))
	require.FileExists(t, filepath.Join(appOutDir, "resources", "relays.json"))
	require.NoFileExists(t, filepath.Join(appOutDir, "resources", "mullvad.exe"))

	launcher, err := os.ReadFile(filepath.Join(appOutDir, "mullvad-vpn"))
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\n", string(launcher))

	require.NoFileExists(t, filepath.Join(c.output, packager.LockFilename))

	saved, err := report.NewFileRepository(c.output).Load(ctx, release.Linux)
	require.NoError(t, err)
	require.True(t, saved.Succeeded())
	require.Equal(t, "2025.3", saved.Version)
	require.Equal(t, []string{artifact}, saved.Artifacts)

	sum, err := packager.FileChecksum(artifact)
	require.NoError(t, err)
	require.Equal(t, map[string]string{artifact: sum}, saved.Checksums)
}

// TestRun_MissingResourceFailsBuild reports the first missing file and
// produces no artifact.
func TestRun_MissingResourceFailsBuild(t *testing.T) {
	t.Parallel()

	c := newCheckout(t, linuxResources())
	writeFile(t, filepath.Join(c.root, "dist-assets", "linux", manifest.LauncherScript), "#!/bin/sh\n")
	writeFile(t, filepath.Join(c.root, "dist-assets", "mullvad-daemon"), "daemon")

	err := packager.Run(context.Background(), &packager.Options{
		ConfigPath:   c.configPath,
		Platform:     release.Linux,
		Architecture: release.ArchX64,
	})
	require.Error(t, err)

	var missing *packager.MissingResourceError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, filepath.Join(c.root, "dist-assets", "relays.json"), missing.Path)

	require.NoFileExists(t, filepath.Join(c.output, "MullvadVPN-2025.3_x64.tar.gz"))

	saved, err := report.NewFileRepository(c.output).Load(context.Background(), release.Linux)
	require.NoError(t, err)
	require.False(t, saved.Succeeded())
	require.Empty(t, saved.Artifacts)
}

// TestRun_MissingConfigFile fails before anything is staged.
func TestRun_MissingConfigFile(t *testing.T) {
	t.Parallel()

	err := packager.Run(context.Background(), &packager.Options{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
		Platform:   release.Linux,
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
}

func writeYAML(t *testing.T, path string, v any) {
	t.Helper()

	data, err := yaml.Marshal(v)
	require.NoError(t, err)

	writeFile(t, path, string(data))
}
