package framework

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/mullvad/desktop-packager/internal/domain/release"
)

// Compression selects how artifacts are compressed.
type Compression string

const (
	// CompressionNormal uses the default compression level.
	CompressionNormal Compression = "normal"
	// CompressionStore writes artifacts without compressing them.
	CompressionStore Compression = "store"
)

// DefaultArtifactName is used when Config.ArtifactName is empty.
const DefaultArtifactName = "${productFilename}-${version}.${ext}"

var (
	errPlatformRequired   = errors.New("platform must be provided")
	errAppIDRequired      = errors.New("app id must be provided")
	errProductRequired    = errors.New("product name must be provided")
	errVersionRequired    = errors.New("version must be provided")
	errExecutableRequired = errors.New("executable must be provided")
	errOutputRequired     = errors.New("output directory must be provided")
	errTargetRequired     = errors.New("target must be provided")
)

// Framework assembles bundles and installer artifacts.
type Framework interface {
	Build(ctx context.Context, cfg *Config) (*BuildResult, error)
}

// Signer code-signs an unpacked bundle in place.
type Signer interface {
	Sign(ctx context.Context, path string) error
}

// Config is everything a pipeline hands to the framework for one build.
type Config struct {
	// AppID is the application identifier (CFBundleIdentifier on macOS).
	AppID string
	// ProductName is the user-facing application name.
	ProductName string
	// Copyright is written into bundle metadata.
	Copyright string
	// Version is the product version.
	Version string
	// ExecutableName names the executable inside Linux bundles.
	ExecutableName string
	// Executable is the prebuilt application binary to bundle.
	Executable string

	// Platform and Arch select the bundle layout.
	Platform release.Platform
	Arch     release.Architecture

	// Compression applies to archive artifacts.
	Compression Compression
	// OutputDir receives unpacked bundles and artifacts.
	OutputDir string
	// ArtifactName is a template over productFilename, version, arch and ext.
	ArtifactName string

	// Resources are the mappings of the active platform.
	Resources []release.ResourceMapping
	// Env provides the bindings used to resolve resource sources.
	Env *release.Environment
	// ExtendInfo is merged into the macOS Info.plist.
	ExtendInfo map[string]any

	// Hooks are invoked at their phases; nil means no hooks.
	Hooks *Hooks
	// Target produces the installer artifact.
	Target Target
	// Signer signs macOS bundles; nil skips signing.
	Signer Signer
}

// ProductFilename is the product name usable in file names.
func (c *Config) ProductFilename() string {
	return sanitizeFilename(c.ProductName)
}

func (c *Config) validate() error {
	switch {
	case c.Platform == "":
		return errPlatformRequired
	case c.AppID == "":
		return errAppIDRequired
	case c.ProductName == "":
		return errProductRequired
	case c.Version == "":
		return errVersionRequired
	case c.Executable == "":
		return errExecutableRequired
	case c.OutputDir == "":
		return errOutputRequired
	case c.Target == nil:
		return errTargetRequired
	}

	return nil
}

// BuildContext is passed to beforeBuild hooks.
type BuildContext struct {
	Platform release.Platform
	Arch     release.Architecture
	// OutDir is the directory receiving unpacked bundles and artifacts.
	OutDir string
}

// PackContext is passed to afterPack and afterSign hooks.
type PackContext struct {
	Platform release.Platform
	Arch     release.Architecture
	// AppOutDir is the unpacked bundle directory, e.g. dist/mac-arm64.
	AppOutDir string
	// ProductFilename is the product name used for the bundle and executable.
	ProductFilename string
	// ResourcesDir receives resource mappings.
	ResourcesDir string
	// ExecutablePath is the staged application executable.
	ExecutablePath string
}

// BundlePath returns the .app bundle on macOS and AppOutDir elsewhere.
func (p *PackContext) BundlePath() string {
	if p.Platform == release.MacOS {
		return filepath.Join(p.AppOutDir, p.ProductFilename+".app")
	}

	return p.AppOutDir
}

// BuildResult is passed to afterAllArtifactBuild hooks and returned by Build.
type BuildResult struct {
	Platform release.Platform
	Arch     release.Architecture
	// OutDir is the output directory.
	OutDir string
	// AppOutDir is the unpacked bundle directory.
	AppOutDir string
	// ArtifactPaths lists the produced installers, primary artifact first.
	ArtifactPaths []string
}

// BuildError is a failure of the framework itself, as opposed to a hook.
type BuildError struct {
	Phase Phase
	Err   error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("packaging framework failed during %s: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// HookError reports which phase a failing hook belonged to.
type HookError struct {
	Phase Phase
	Err   error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook: %v", e.Phase, e.Err)
}

// Unwrap returns the hook's error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// ArchName returns the artifact architecture suffix, resolving the host
// architecture to the machine the packager runs on.
func ArchName(arch release.Architecture) string {
	if arch != release.ArchHost {
		return string(arch)
	}

	switch runtime.GOARCH {
	case "amd64":
		return string(release.ArchX64)
	case "arm64":
		return string(release.ArchArm64)
	default:
		return runtime.GOARCH
	}
}

// UnpackedDirName returns the directory name of the unpacked bundle.
func UnpackedDirName(p release.Platform, arch release.Architecture) string {
	switch p {
	case release.MacOS:
		switch arch {
		case release.ArchArm64:
			return "mac-arm64"
		case release.ArchUniversal:
			return "mac-universal"
		default:
			return "mac"
		}
	case release.Windows:
		return "win-unpacked"
	default:
		return string(p) + "-unpacked"
	}
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))

	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			continue
		}

		out = append(out, r)
	}

	return string(out)
}
