package release

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifies the operating system an installer is produced for.
type Platform string

const (
	// MacOS produces a notarized installer package.
	MacOS Platform = "macos"
	// Windows produces a single-file elevated installer.
	Windows Platform = "windows"
	// Linux produces a portable application image.
	Linux Platform = "linux"
)

// Architecture selects the CPU architecture of the produced artifact.
type Architecture string

const (
	// ArchHost lets the packaging framework build for the machine it runs on.
	ArchHost Architecture = ""
	// ArchX64 targets 64-bit Intel.
	ArchX64 Architecture = "x64"
	// ArchArm64 targets 64-bit ARM.
	ArchArm64 Architecture = "arm64"
	// ArchUniversal builds a multi-architecture artifact (macOS only).
	ArchUniversal Architecture = "universal"
)

var (
	errUnknownPlatform         = errors.New("unknown platform")
	errUnsupportedArchitecture = errors.New("architecture not supported on platform")
)

// ParsePlatform converts user input such as "mac" or "win" into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mac", "macos", "darwin":
		return MacOS, nil
	case "win", "windows":
		return Windows, nil
	case "linux":
		return Linux, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownPlatform, s)
	}
}

// String returns the architecture name, "host" for the unspecified value.
func (a Architecture) String() string {
	if a == ArchHost {
		return "host"
	}

	return string(a)
}

// BuildTarget describes one packaging run. It is created from the process
// flags and never changes while the run is in progress.
type BuildTarget struct {
	// Platform is the operating system the installer is produced for.
	Platform Platform
	// Architecture is the requested CPU architecture; ArchHost means unspecified.
	Architecture Architecture
	// Release selects release builds of native libraries (Windows only).
	Release bool
}

// Validate checks that the architecture is meaningful for the platform.
func (t BuildTarget) Validate() error {
	switch t.Platform {
	case MacOS:
		switch t.Architecture {
		case ArchHost, ArchX64, ArchArm64, ArchUniversal:
			return nil
		}
	case Windows:
		if t.Architecture == ArchHost || t.Architecture == ArchX64 {
			return nil
		}
	case Linux:
		if t.Architecture != ArchUniversal {
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownPlatform, t.Platform)
	}

	return fmt.Errorf("%s on %s: %w", t.Architecture, t.Platform, errUnsupportedArchitecture)
}
