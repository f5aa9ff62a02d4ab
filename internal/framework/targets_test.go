package framework

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/mullvad/desktop-packager/internal/domain/release"
)

func targetJob(t *testing.T, platform release.Platform, arch release.Architecture) *TargetJob {
	t.Helper()

	out := t.TempDir()
	cfg := &Config{
		AppID:       "net.mullvad.vpn",
		ProductName: "Mullvad VPN",
		Version:     "2024.1",
		Platform:    platform,
		Arch:        arch,
	}

	appOutDir := filepath.Join(out, UnpackedDirName(platform, arch))

	return &TargetJob{
		Config:    cfg,
		AppOutDir: appOutDir,
		Source:    filepath.Join(appOutDir, "Mullvad VPN.app"),
		Output:    filepath.Join(out, "MullvadVPN-2024.1.pkg"),
	}
}

func TestCommandTarget_ResolvesTemplates(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.Linux, release.ArchX64)
	job.Source = job.AppOutDir
	job.Output = filepath.Join(filepath.Dir(job.AppOutDir), "MullvadVPN-2024.1_x64.AppImage")

	runner := &recordingRunner{onRun: func(_ string, args []string) error {
		return os.WriteFile(args[len(args)-1], nil, 0o644)
	}}

	target := NewCommandTarget(runner, "AppImage", []string{"appimagetool", "--comp", "zstd", "${appOutDir}", "${output}"})
	require.Equal(t, "AppImage", target.Ext())
	require.NoError(t, target.Build(context.Background(), job))
	require.Equal(t, []string{"appimagetool --comp zstd " + job.AppOutDir + " " + job.Output}, runner.commandLines())
}

func TestCommandTarget_MissingArtifact(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.Linux, release.ArchX64)
	target := NewCommandTarget(&recordingRunner{}, "AppImage", []string{"true"})

	require.ErrorIs(t, target.Build(context.Background(), job), errArtifactMissing)
	require.ErrorIs(t, NewCommandTarget(&recordingRunner{}, "x", nil).Build(context.Background(), job), errEmptyCommand)
}

func TestNSISTarget_Defines(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.Windows, release.ArchX64)
	job.Output = filepath.Join(t.TempDir(), "MullvadVPN-2024.1.exe")

	runner := &recordingRunner{onRun: func(string, []string) error {
		return os.WriteFile(job.Output, nil, 0o644)
	}}

	target := NewNSISTarget(runner, NSISOptions{
		GUID:           "2A356FD4-03B7-4F45-99B4-737BE580DC82",
		PerMachine:     true,
		AllowElevation: true,
		Script:         "installer.nsi",
	})
	require.Equal(t, "exe", target.Ext())
	require.NoError(t, target.Build(context.Background(), job))

	line := runner.commandLines()[0]
	require.True(t, strings.HasPrefix(line, "makensis -V2 -DAPP_GUID=2A356FD4-03B7-4F45-99B4-737BE580DC82"))
	require.Contains(t, line, "-DPRODUCT_NAME=Mullvad VPN")
	require.Contains(t, line, "-DONE_CLICK=0")
	require.Contains(t, line, "-DPER_MACHINE=1")
	require.Contains(t, line, "-DALLOW_ELEVATION=1")
	require.Contains(t, line, "-DALLOW_CHANGE_INSTALL_DIR=0")
	require.Contains(t, line, "-DOUTPUT_FILE="+job.Output)
	require.True(t, strings.HasSuffix(line, " installer.nsi"))
}

func TestPkgTarget_Build(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.MacOS, release.ArchUniversal)

	var (
		components   []map[string]any
		distribution string
	)

	runner := &recordingRunner{onRun: func(name string, args []string) error {
		switch name {
		case "pkgbuild":
			data, err := os.ReadFile(args[3])
			if err != nil {
				return err
			}

			_, err = plist.Unmarshal(data, &components)

			return err
		case "productbuild":
			data, err := os.ReadFile(args[1])
			distribution = string(data)

			return err
		}

		return nil
	}}

	target := NewPkgTarget(runner, PkgOptions{Identity: "Developer ID Installer: Mullvad VPN AB"})
	require.Equal(t, "pkg", target.Ext())
	require.NoError(t, target.Build(context.Background(), job))

	lines := runner.commandLines()
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "pkgbuild --root "+job.AppOutDir)
	require.Contains(t, lines[0], "--identifier net.mullvad.vpn --version 2024.1 --install-location /Applications")
	require.Contains(t, lines[1], "--sign Developer ID Installer: Mullvad VPN AB "+job.Output)

	require.Len(t, components, 1)
	require.Equal(t, "Mullvad VPN.app", components[0]["RootRelativeBundlePath"])
	require.Equal(t, false, components[0]["BundleIsRelocatable"])

	require.Contains(t, distribution, `hostArchitectures="x86_64,arm64"`)
	require.Contains(t, distribution, `enable_anywhere="false"`)
	require.Contains(t, distribution, `<pkg-ref id="net.mullvad.vpn" version="2024.1" onConclusion="none">net.mullvad.vpn.pkg</pkg-ref>`)
}

func TestCodesignSigner(t *testing.T) {
	t.Parallel()

	runner := new(recordingRunner)
	signer := NewCodesignSigner(runner, "Developer ID Application: Mullvad VPN AB", "entitlements.plist")

	require.NoError(t, signer.Sign(context.Background(), "/dist/mac/Mullvad VPN.app"))
	require.Equal(t, []string{
		"codesign --force --deep --options runtime --timestamp --sign Developer ID Application: Mullvad VPN AB " +
			"--entitlements entitlements.plist /dist/mac/Mullvad VPN.app",
	}, runner.commandLines())
}

func TestAppImageTarget_Build(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.Linux, release.ArchX64)
	job.Config.ExecutableName = "mullvad-vpn"
	job.Source = job.AppOutDir
	job.Output = filepath.Join(filepath.Dir(job.AppOutDir), "MullvadVPN-2024.1_x64.AppImage")

	writeFile(t, filepath.Join(job.AppOutDir, "mullvad-vpn"), "#!/bin/sh")

	assets := t.TempDir()
	desktop := writeFile(t, filepath.Join(assets, "mullvad-vpn.desktop"), "[Desktop Entry]")
	icon := writeFile(t, filepath.Join(assets, "mullvad-vpn.png"), "png")

	runner := &recordingRunner{onRun: func(_ string, args []string) error {
		return os.WriteFile(args[len(args)-1], nil, 0o644)
	}}

	target := NewAppImageTarget(runner, AppImageOptions{DesktopFile: desktop, Icon: icon})
	require.Equal(t, "AppImage", target.Ext())
	require.NoError(t, target.Build(context.Background(), job))
	require.Equal(t, []string{"appimagetool --no-appstream " + job.AppOutDir + " " + job.Output}, runner.commandLines())

	link, err := os.Readlink(filepath.Join(job.AppOutDir, AppRun))
	require.NoError(t, err)
	require.Equal(t, "mullvad-vpn", link)
	require.Equal(t, "[Desktop Entry]", readFile(t, filepath.Join(job.AppOutDir, "mullvad-vpn.desktop")))
	require.Equal(t, "png", readFile(t, filepath.Join(job.AppOutDir, "mullvad-vpn.png")))

	// A second build keeps the existing AppRun.
	require.NoError(t, os.Remove(job.Output))
	require.NoError(t, target.Build(context.Background(), job))
}

func TestAppImageTarget_MissingDesktopFile(t *testing.T) {
	t.Parallel()

	job := targetJob(t, release.Linux, release.ArchX64)
	job.Config.ExecutableName = "mullvad-vpn"
	require.NoError(t, os.MkdirAll(job.AppOutDir, 0o755))

	runner := &recordingRunner{}
	target := NewAppImageTarget(runner, AppImageOptions{DesktopFile: filepath.Join(t.TempDir(), "absent.desktop")})

	require.ErrorIs(t, target.Build(context.Background(), job), os.ErrNotExist)
	require.Empty(t, runner.commandLines())

	job.Config.ExecutableName = ""
	require.ErrorIs(t, target.Build(context.Background(), job), errNoExecutableName)
}
