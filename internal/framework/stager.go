package framework

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/fsutil"
	"github.com/mullvad/desktop-packager/internal/logger"
)

const (
	dirPermissions  = 0o755
	execPermissions = 0o755
)

// Stager is a Framework that lays out the unpacked bundle on the local
// filesystem and delegates the installer artifact to the configured Target.
type Stager struct{}

// NewStager creates a Stager.
func NewStager() *Stager {
	return &Stager{}
}

// Build runs every phase for cfg.
func (s *Stager) Build(ctx context.Context, cfg *Config) (*BuildResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, &BuildError{Phase: PhaseConfigure, Err: err}
	}

	hooks := cfg.Hooks
	if hooks == nil {
		hooks = new(Hooks)
	}

	ctx = logger.WithKV(ctx, "platform", string(cfg.Platform), "arch", cfg.Arch.String())

	bc := &BuildContext{Platform: cfg.Platform, Arch: cfg.Arch, OutDir: cfg.OutputDir}
	if err := hooks.BeforeBuild.Run(ctx, bc); err != nil {
		return nil, &HookError{Phase: PhaseBeforeBuild, Err: err}
	}

	pack, err := s.stage(ctx, cfg)
	if err != nil {
		return nil, &BuildError{Phase: PhaseStage, Err: err}
	}

	if err = hooks.AfterPack.Run(ctx, pack); err != nil {
		return nil, &HookError{Phase: PhaseAfterPack, Err: err}
	}

	if cfg.Platform == release.MacOS && cfg.Signer != nil {
		logger.InfoKV(ctx, "Signing bundle", "path", pack.BundlePath())

		if err = cfg.Signer.Sign(ctx, pack.BundlePath()); err != nil {
			return nil, &BuildError{Phase: PhaseSign, Err: err}
		}
	}

	if err = hooks.AfterSign.Run(ctx, pack); err != nil {
		return nil, &HookError{Phase: PhaseAfterSign, Err: err}
	}

	artifact := filepath.Join(cfg.OutputDir, artifactName(cfg))

	logger.InfoKV(ctx, "Building artifact", "path", artifact)

	job := &TargetJob{
		Config:      cfg,
		AppOutDir:   pack.AppOutDir,
		Source:      pack.BundlePath(),
		Output:      artifact,
		Compression: cfg.Compression,
	}

	if err = cfg.Target.Build(ctx, job); err != nil {
		return nil, &BuildError{Phase: PhaseArtifact, Err: err}
	}

	result := &BuildResult{
		Platform:      cfg.Platform,
		Arch:          cfg.Arch,
		OutDir:        cfg.OutputDir,
		AppOutDir:     pack.AppOutDir,
		ArtifactPaths: []string{artifact},
	}

	if err = hooks.AfterAllArtifactBuild.Run(ctx, result); err != nil {
		return result, &HookError{Phase: PhaseAfterAllArtifactBuild, Err: err}
	}

	return result, nil
}

// stage recreates the unpacked bundle and copies the executable and resources.
func (s *Stager) stage(ctx context.Context, cfg *Config) (*PackContext, error) {
	appOutDir := filepath.Join(cfg.OutputDir, UnpackedDirName(cfg.Platform, cfg.Arch))

	if err := os.RemoveAll(appOutDir); err != nil {
		return nil, fmt.Errorf("clean %s: %w", appOutDir, err)
	}

	pack := &PackContext{
		Platform:        cfg.Platform,
		Arch:            cfg.Arch,
		AppOutDir:       appOutDir,
		ProductFilename: cfg.ProductFilename(),
	}

	layout := newLayout(cfg, pack)
	pack.ResourcesDir = layout.resources
	pack.ExecutablePath = layout.executable

	for _, dir := range []string{layout.root, layout.resources, filepath.Dir(layout.executable)} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := fsutil.CopyFile(cfg.Executable, layout.executable); err != nil {
		return nil, fmt.Errorf("copy executable: %w", err)
	}

	if err := os.Chmod(layout.executable, execPermissions); err != nil {
		return nil, fmt.Errorf("chmod executable: %w", err)
	}

	var bindings release.Bindings
	if cfg.Env != nil {
		bindings = cfg.Env.Snapshot()
	}

	for _, mapping := range cfg.Resources {
		if !mapping.Scope.Includes(cfg.Platform) {
			continue
		}

		source := mapping.Resolve(bindings)

		base := layout.resources
		if mapping.IsFile() {
			base = layout.root
		}

		destination := destinationPath(base, source, mapping.Destination)

		err := copyPath(source, destination)
		if errors.Is(err, fs.ErrNotExist) {
			logger.WarnKV(ctx, "Resource not found, skipping", "source", source)

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", source, err)
		}

		logger.DebugKV(ctx, "Copied resource", "source", source, "destination", destination)
	}

	if cfg.Platform == release.MacOS {
		if err := writeInfoPlist(filepath.Join(layout.root, "Info.plist"), cfg, filepath.Base(layout.executable)); err != nil {
			return nil, err
		}
	}

	return pack, nil
}

// layout holds the directories of one platform's bundle.
type layout struct {
	// root receives file mappings; on macOS it is the Contents directory.
	root       string
	resources  string
	executable string
}

func newLayout(cfg *Config, pack *PackContext) layout {
	switch cfg.Platform {
	case release.MacOS:
		contents := filepath.Join(pack.BundlePath(), "Contents")

		return layout{
			root:       contents,
			resources:  filepath.Join(contents, "Resources"),
			executable: filepath.Join(contents, "MacOS", pack.ProductFilename),
		}
	case release.Windows:
		return layout{
			root:       pack.AppOutDir,
			resources:  filepath.Join(pack.AppOutDir, "resources"),
			executable: filepath.Join(pack.AppOutDir, pack.ProductFilename+".exe"),
		}
	default:
		name := cfg.ExecutableName
		if name == "" {
			name = strings.ToLower(strings.ReplaceAll(pack.ProductFilename, " ", "-"))
		}

		return layout{
			root:       pack.AppOutDir,
			resources:  filepath.Join(pack.AppOutDir, "resources"),
			executable: filepath.Join(pack.AppOutDir, name),
		}
	}
}

// destinationPath maps a mapping destination below base. "." and a trailing
// separator keep the source's file name.
func destinationPath(base, source, destination string) string {
	name := filepath.Base(source)

	switch {
	case destination == "" || destination == ".":
		return filepath.Join(base, name)
	case strings.HasSuffix(destination, "/"):
		return filepath.Join(base, destination, name)
	default:
		return filepath.Join(base, destination)
	}
}

func artifactName(cfg *Config) string {
	template := cfg.ArtifactName
	if template == "" {
		template = DefaultArtifactName
	}

	return release.Resolve(template, release.Bindings{
		"productFilename": cfg.ProductFilename(),
		"productName":     cfg.ProductName,
		"version":         cfg.Version,
		"arch":            ArchName(cfg.Arch),
		"ext":             cfg.Target.Ext(),
	})
}

// copyPath copies a file or a directory tree.
func copyPath(source, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if err = os.MkdirAll(filepath.Dir(destination), dirPermissions); err != nil {
			return err
		}

		return fsutil.CopyFile(source, destination)
	}

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}

		target := filepath.Join(destination, rel)

		if d.IsDir() {
			return os.MkdirAll(target, dirPermissions)
		}

		return fsutil.CopyFile(path, target)
	})
}
