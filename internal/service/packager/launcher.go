package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mullvad/desktop-packager/internal/fsutil"
	"github.com/mullvad/desktop-packager/internal/logger"
	"github.com/mullvad/desktop-packager/internal/manifest"
)

// InternalExecutableName is the name the real Linux executable is moved to.
const InternalExecutableName = "mullvad-gui"

const launcherPermissions = 0o755

var errLauncherMissing = errors.New("launcher script is missing from the bundle")

// launcherSwap installs the launcher script under the public executable name.
type launcherSwap struct {
	// public is the executable users invoke, e.g. mullvad-vpn.
	public string
	// internal receives the real executable.
	internal string
	// launcher is the bundled launcher script.
	launcher string
	// observe is called after every step.
	observe func(step string)
}

func newLauncherSwap(appOutDir, executableName string) *launcherSwap {
	return &launcherSwap{
		public:   filepath.Join(appOutDir, executableName),
		internal: filepath.Join(appOutDir, InternalExecutableName),
		launcher: filepath.Join(appOutDir, manifest.LauncherScript),
		observe:  func(string) {},
	}
}

// SwapLauncher moves the executable in appOutDir to InternalExecutableName and
// puts the launcher script in its place. The public name exists throughout:
// the executable is first linked (or copied) to its internal name, and the
// launcher then replaces the public name in a single rename.
func SwapLauncher(ctx context.Context, appOutDir, executableName string) error {
	return newLauncherSwap(appOutDir, executableName).run(ctx)
}

func (s *launcherSwap) run(ctx context.Context) error {
	if _, err := os.Stat(s.public); err != nil {
		return fmt.Errorf("stat executable: %w", err)
	}

	if _, err := os.Stat(s.launcher); err != nil {
		return fmt.Errorf("%w: %w", errLauncherMissing, err)
	}

	if err := s.moveAside(ctx); err != nil {
		return err
	}

	s.observe("executable moved aside")

	if err := os.Chmod(s.launcher, launcherPermissions); err != nil {
		return fmt.Errorf("chmod launcher: %w", err)
	}

	if err := os.Rename(s.launcher, s.public); err != nil {
		return fmt.Errorf("install launcher: %w", err)
	}

	s.observe("launcher installed")

	logger.InfoKV(ctx, "Installed launcher script", "executable", s.internal, "launcher", s.public)

	return nil
}

// moveAside makes the executable available under its internal name without
// removing the public one.
func (s *launcherSwap) moveAside(ctx context.Context) error {
	staging := s.internal + ".staging"
	_ = os.Remove(staging)

	err := os.Link(s.public, staging)
	if err == nil {
		if err = os.Rename(staging, s.internal); err != nil {
			_ = os.Remove(staging)

			return fmt.Errorf("move executable aside: %w", err)
		}

		return nil
	}

	logger.DebugKV(ctx, "Hard link failed, copying executable", "error", err)

	if err = fsutil.CopyFileAtomic(s.public, s.internal); err != nil {
		return fmt.Errorf("copy executable aside: %w", err)
	}

	return nil
}
