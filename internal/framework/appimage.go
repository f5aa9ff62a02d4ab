package framework

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mullvad/desktop-packager/internal/executor"
	"github.com/mullvad/desktop-packager/internal/fsutil"
)

// AppRun is the entry point appimagetool requires at the AppDir root.
const AppRun = "AppRun"

var errNoExecutableName = errors.New("appimage target needs the executable name")

// AppImageOptions configure the Linux application image.
type AppImageOptions struct {
	// DesktopFile is copied to the AppDir root; appimagetool requires one.
	DesktopFile string
	// Icon is copied to the AppDir root next to the desktop file.
	Icon string
}

// AppImageTarget turns the unpacked Linux bundle into an AppDir and builds an
// AppImage from it with appimagetool.
type AppImageTarget struct {
	opts    AppImageOptions
	command *CommandTarget
}

// NewAppImageTarget creates a target producing .AppImage artifacts.
func NewAppImageTarget(runner executor.Runner, opts AppImageOptions) *AppImageTarget {
	return &AppImageTarget{
		opts:    opts,
		command: NewCommandTarget(runner, "AppImage", []string{"appimagetool", "--no-appstream", "${appOutDir}", "${output}"}),
	}
}

// Ext implements Target.
func (t *AppImageTarget) Ext() string {
	return t.command.Ext()
}

// Build implements Target.
func (t *AppImageTarget) Build(ctx context.Context, job *TargetJob) error {
	if err := t.prepareAppDir(job); err != nil {
		return fmt.Errorf("prepare AppDir: %w", err)
	}

	return t.command.Build(ctx, job)
}

// prepareAppDir links AppRun to the public executable and copies the desktop
// entry and icon into the bundle root.
func (t *AppImageTarget) prepareAppDir(job *TargetJob) error {
	if job.Config.ExecutableName == "" {
		return errNoExecutableName
	}

	appRun := filepath.Join(job.AppOutDir, AppRun)
	if _, err := os.Lstat(appRun); errors.Is(err, os.ErrNotExist) {
		if err = os.Symlink(job.Config.ExecutableName, appRun); err != nil {
			return err
		}
	}

	for _, src := range []string{t.opts.DesktopFile, t.opts.Icon} {
		if src == "" {
			continue
		}

		if err := fsutil.CopyFile(src, filepath.Join(job.AppOutDir, filepath.Base(src))); err != nil {
			return err
		}
	}

	return nil
}
