package framework

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"text/template"

	"howett.net/plist"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/executor"
	"github.com/mullvad/desktop-packager/internal/fsutil"
)

// DefaultInstallLocation is where the pkg installs the bundle.
const DefaultInstallLocation = "/Applications"

// PkgOptions configure the macOS installer package.
type PkgOptions struct {
	AllowAnywhere        bool
	AllowCurrentUserHome bool
	Relocatable          bool
	VersionChecked       bool
	// InstallLocation defaults to DefaultInstallLocation.
	InstallLocation string
	// Identity is a "Developer ID Installer" identity; empty leaves the pkg unsigned.
	Identity string
}

// PkgTarget builds a flat installer package with pkgbuild and productbuild.
type PkgTarget struct {
	runner executor.Runner
	opts   PkgOptions
}

// NewPkgTarget creates a pkg target.
func NewPkgTarget(runner executor.Runner, opts PkgOptions) *PkgTarget {
	if opts.InstallLocation == "" {
		opts.InstallLocation = DefaultInstallLocation
	}

	return &PkgTarget{runner: runner, opts: opts}
}

// Ext implements Target.
func (t *PkgTarget) Ext() string {
	return "pkg"
}

// Build implements Target.
func (t *PkgTarget) Build(ctx context.Context, job *TargetJob) error {
	work, err := os.MkdirTemp("", "mullvad-pkg-")
	if err != nil {
		return err
	}

	defer func() {
		_ = os.RemoveAll(work)
	}()

	componentPlist := filepath.Join(work, "component.plist")
	if err = t.writeComponentPlist(componentPlist, filepath.Base(job.Source)); err != nil {
		return err
	}

	cfg := job.Config
	componentPkg := cfg.AppID + ".pkg"

	if _, err = t.runner.Run(ctx, "pkgbuild",
		"--root", job.AppOutDir,
		"--component-plist", componentPlist,
		"--identifier", cfg.AppID,
		"--version", cfg.Version,
		"--install-location", t.opts.InstallLocation,
		filepath.Join(work, componentPkg),
	); err != nil {
		return fmt.Errorf("pkgbuild: %w", err)
	}

	distribution := filepath.Join(work, "distribution.xml")
	if err = t.writeDistribution(distribution, cfg, componentPkg); err != nil {
		return err
	}

	args := []string{"--distribution", distribution, "--package-path", work}
	if t.opts.Identity != "" {
		args = append(args, "--sign", t.opts.Identity)
	}

	args = append(args, job.Output)

	if _, err = t.runner.Run(ctx, "productbuild", args...); err != nil {
		return fmt.Errorf("productbuild: %w", err)
	}

	return nil
}

func (t *PkgTarget) writeComponentPlist(path, bundle string) error {
	components := []map[string]any{{
		"RootRelativeBundlePath":    bundle,
		"BundleIsRelocatable":       t.opts.Relocatable,
		"BundleIsVersionChecked":    t.opts.VersionChecked,
		"BundleHasStrictIdentifier": true,
		"BundleOverwriteAction":     "upgrade",
	}}

	data, err := plist.MarshalIndent(components, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode component plist: %w", err)
	}

	return fsutil.WriteFile(path, data, artifactPermissions)
}

//nolint:gochecknoglobals // Parsed once.
var distributionTemplate = template.Must(template.New("distribution").
	Funcs(template.FuncMap{"xml": html.EscapeString}).
	Parse(`<?xml version="1.0" encoding="utf-8"?>
<installer-gui-script minSpecVersion="2">
    <title>{{ xml .Title }}</title>
    <options customize="never" require-scripts="false"{{ if .HostArchitectures }} hostArchitectures="{{ .HostArchitectures }}"{{ end }}/>
    <domains enable_anywhere="{{ .AllowAnywhere }}" enable_currentUserHome="{{ .AllowCurrentUserHome }}" enable_localSystem="true"/>
    <choices-outline>
        <line choice="default">
            <line choice="{{ xml .ID }}"/>
        </line>
    </choices-outline>
    <choice id="default"/>
    <choice id="{{ xml .ID }}" visible="false">
        <pkg-ref id="{{ xml .ID }}"/>
    </choice>
    <pkg-ref id="{{ xml .ID }}" version="{{ xml .Version }}" onConclusion="none">{{ xml .Package }}</pkg-ref>
</installer-gui-script>
`))

func (t *PkgTarget) writeDistribution(path string, cfg *Config, componentPkg string) error {
	var buf bytes.Buffer

	err := distributionTemplate.Execute(&buf, map[string]any{
		"Title":                cfg.ProductName,
		"ID":                   cfg.AppID,
		"Version":              cfg.Version,
		"Package":              componentPkg,
		"HostArchitectures":    hostArchitectures(cfg.Arch),
		"AllowAnywhere":        t.opts.AllowAnywhere,
		"AllowCurrentUserHome": t.opts.AllowCurrentUserHome,
	})
	if err != nil {
		return fmt.Errorf("render distribution: %w", err)
	}

	return fsutil.WriteFile(path, buf.Bytes(), artifactPermissions)
}

func hostArchitectures(arch release.Architecture) string {
	switch arch {
	case release.ArchX64:
		return "x86_64"
	case release.ArchArm64:
		return "arm64"
	case release.ArchUniversal:
		return "x86_64,arm64"
	default:
		return ""
	}
}
