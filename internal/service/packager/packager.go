package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/executor"
	"github.com/mullvad/desktop-packager/internal/framework"
	"github.com/mullvad/desktop-packager/internal/logger"
	"github.com/mullvad/desktop-packager/internal/manifest"
	"github.com/mullvad/desktop-packager/internal/notarize"
	"github.com/mullvad/desktop-packager/internal/repository/report"
	"github.com/mullvad/desktop-packager/internal/version"
)

// Artifact name templates per platform.
const (
	macArtifactName     = "MullvadVPN-${version}.${ext}"
	windowsArtifactName = "MullvadVPN-${version}.${ext}"
	linuxArtifactName   = "MullvadVPN-${version}_${arch}.${ext}"
)

var errConfigRequired = errors.New("configuration is required")

// Request selects what a single Build produces.
type Request struct {
	// Target is the platform, architecture and build mode.
	Target release.BuildTarget
	// NoCompression stores archive artifacts uncompressed.
	NoCompression bool
	// NoNotarization skips both macOS notarization submissions.
	NoNotarization bool
}

// Outcome describes what a Build produced.
type Outcome struct {
	RunID     string
	Version   string
	Artifacts []string
	// Checksums maps every artifact to its ChecksumFunction digest.
	Checksums map[string]string
	Notarized []string
	Cleanup   []CleanupResult
}

// Packager runs platform pipelines against a packaging framework.
type Packager struct {
	cfg         *config.Config
	manifest    *manifest.Manifest
	framework   framework.Framework
	notarizer   notarize.Notarizer
	credentials notarize.CredentialSource
	runner      executor.Runner
	reports     report.Repository
	env         *release.Environment
	observe     func(*framework.Hooks)
}

// Option configures a Packager.
type Option func(*Packager)

// WithFramework replaces the packaging framework.
func WithFramework(f framework.Framework) Option {
	return func(p *Packager) {
		p.framework = f
	}
}

// WithNotarizer replaces the notarization client.
func WithNotarizer(n notarize.Notarizer) Option {
	return func(p *Packager) {
		p.notarizer = n
	}
}

// WithCredentials replaces the notarization credential source.
func WithCredentials(src notarize.CredentialSource) Option {
	return func(p *Packager) {
		p.credentials = src
	}
}

// WithRunner replaces the runner used for external tools.
func WithRunner(r executor.Runner) Option {
	return func(p *Packager) {
		p.runner = r
	}
}

// WithManifest replaces the resource manifest.
func WithManifest(m *manifest.Manifest) Option {
	return func(p *Packager) {
		p.manifest = m
	}
}

// WithReports replaces the build report repository.
func WithReports(r report.Repository) Option {
	return func(p *Packager) {
		p.reports = r
	}
}

// WithEnvironment replaces the binding environment.
func WithEnvironment(env *release.Environment) Option {
	return func(p *Packager) {
		p.env = env
	}
}

// WithHookObserver is called with the pipeline's hooks before every build.
// Hooks it registers run after the pipeline's own hooks of the same phase and
// before the pipeline's tear-down hooks.
func WithHookObserver(fn func(*framework.Hooks)) Option {
	return func(p *Packager) {
		p.observe = fn
	}
}

// New creates a Packager for cfg.
func New(cfg *config.Config, opts ...Option) (*Packager, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	p := &Packager{
		cfg: cfg,
		env: release.NewEnvironment(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.runner == nil {
		p.runner = executor.New()
	}

	if p.framework == nil {
		p.framework = framework.NewStager()
	}

	if p.reports == nil {
		p.reports = report.NewFileRepository(cfg.Paths.Output)
	}

	if p.notarizer == nil {
		p.notarizer = notarize.NewClient(
			notarize.WithTool(cfg.Notarization.Tool),
			notarize.WithRunner(p.runner),
			notarize.WithTimeout(cfg.Notarization.Timeout),
			notarize.WithStaple(cfg.Notarization.ShouldStaple()),
		)
	}

	if p.manifest == nil {
		m, err := loadManifest(cfg)
		if err != nil {
			return nil, err
		}

		p.manifest = m
	}

	return p, nil
}

// Environment returns the bindings shared by the pipeline hooks.
func (p *Packager) Environment() *release.Environment {
	return p.env
}

// Build runs the pipeline of req.Target.Platform. Only one Build may run at a
// time per Packager.
func (p *Packager) Build(ctx context.Context, req *Request) (*Outcome, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	outcome := &Outcome{RunID: uuid.NewString()}

	ctx = logger.WithKV(ctx, "run_id", outcome.RunID, "platform", string(req.Target.Platform))

	err := p.build(ctx, req, outcome)
	if errors.Is(err, errPackagerRunning) {
		return outcome, err
	}

	p.saveReport(ctx, req, outcome, started, err)

	if err != nil {
		return outcome, err
	}

	logger.InfoKV(ctx, "Packaging finished", "artifacts", outcome.Artifacts)

	return outcome, nil
}

func (p *Packager) build(ctx context.Context, req *Request, outcome *Outcome) (err error) {
	lock, err := acquireLock(ctx, p.cfg.Paths.Output)
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, lock.Release())
	}()

	outcome.Version, err = p.version()
	if err != nil {
		return err
	}

	r := &run{
		packager: p,
		req:      req,
		ledger:   NewLedger(),
		outcome:  outcome,
	}

	hooks := new(framework.Hooks)

	switch req.Target.Platform {
	case release.MacOS:
		r.macOSHooks(hooks)
	case release.Windows:
		r.windowsHooks(hooks)
	case release.Linux:
		r.linuxHooks(hooks)
	}

	if p.observe != nil {
		p.observe(hooks)
	}

	logger.InfoKV(ctx, "Packaging",
		"version", outcome.Version,
		"arch", req.Target.Architecture.String(),
		"release", req.Target.Release,
		"notarize", req.Target.Platform == release.MacOS && !req.NoNotarization,
	)

	result, err := p.framework.Build(ctx, p.frameworkConfig(req, outcome.Version, hooks))

	p.env.Reset()
	r.cleanup(ctx)

	if result != nil {
		outcome.Artifacts = result.ArtifactPaths
	}

	if err != nil {
		return err
	}

	outcome.Checksums, err = checksums(outcome.Artifacts)

	return err
}

// frameworkConfig assembles the framework configuration of one build.
func (p *Packager) frameworkConfig(req *Request, productVersion string, hooks *framework.Hooks) *framework.Config {
	platform := req.Target.Platform

	cfg := &framework.Config{
		AppID:          p.cfg.App.ID,
		ProductName:    p.cfg.App.ProductName,
		Copyright:      p.cfg.App.Copyright,
		Version:        productVersion,
		ExecutableName: p.cfg.App.ExecutableName,
		Executable:     p.executable(platform),
		Platform:       platform,
		Arch:           release.FrameworkArchitecture(req.Target),
		Compression:    framework.CompressionNormal,
		OutputDir:      p.cfg.Paths.Output,
		Resources:      p.manifest.For(platform),
		Env:            p.env,
		Hooks:          hooks,
		Target:         p.target(platform),
	}

	if req.NoCompression {
		cfg.Compression = framework.CompressionStore
	}

	switch platform {
	case release.MacOS:
		cfg.ArtifactName = macArtifactName
		cfg.ExtendInfo = map[string]any{
			"LSUIElement":                  true,
			"NSUserNotificationAlertStyle": "alert",
		}

		if p.cfg.Signing.Identity != "" {
			cfg.Signer = framework.NewCodesignSigner(p.runner, p.cfg.Signing.Identity, p.cfg.Signing.Entitlements)
		}
	case release.Windows:
		cfg.ArtifactName = windowsArtifactName
	case release.Linux:
		cfg.ArtifactName = linuxArtifactName
	}

	return cfg
}

// target returns the configured installer target of platform.
func (p *Packager) target(platform release.Platform) framework.Target {
	var t config.Target

	switch platform {
	case release.MacOS:
		t = p.cfg.Targets.MacOS
	case release.Windows:
		t = p.cfg.Targets.Windows
	default:
		t = p.cfg.Targets.Linux
	}

	switch t.Kind {
	case config.TargetPkg:
		pkg := p.cfg.Installer.Pkg

		return framework.NewPkgTarget(p.runner, framework.PkgOptions{
			AllowAnywhere:        pkg.AllowAnywhere,
			AllowCurrentUserHome: pkg.AllowCurrentUserHome,
			Relocatable:          pkg.Relocatable,
			VersionChecked:       pkg.VersionChecked,
			Identity:             p.cfg.Signing.InstallerIdentity,
		})
	case config.TargetNSIS:
		nsis := p.cfg.Installer.NSIS

		return framework.NewNSISTarget(p.runner, framework.NSISOptions{
			GUID:                  nsis.GUID,
			OneClick:              nsis.OneClick,
			PerMachine:            nsis.PerMachine,
			AllowElevation:        nsis.AllowElevation,
			AllowChangeInstallDir: nsis.AllowChangeInstallDir,
			Script:                nsis.Script,
			Include:               nsis.Include,
			Sidebar:               nsis.Sidebar,
		})
	case config.TargetAppImage:
		appImage := p.cfg.Installer.AppImage

		return framework.NewAppImageTarget(p.runner, framework.AppImageOptions{
			DesktopFile: appImage.DesktopFile,
			Icon:        appImage.Icon,
		})
	case config.TargetCommand:
		return framework.NewCommandTarget(p.runner, t.Ext, t.Command)
	default:
		return framework.ArchiveTarget{}
	}
}

// executable returns the prebuilt application binary for platform.
func (p *Packager) executable(platform release.Platform) string {
	if p.cfg.App.Executable != "" {
		return p.cfg.App.Executable
	}

	name := p.cfg.App.ExecutableName
	if platform == release.Windows {
		name += ".exe"
	}

	return filepath.Join(p.cfg.Paths.DistAssets, name)
}

// version returns the configured product version or reads it from package.json.
func (p *Packager) version() (string, error) {
	if p.cfg.App.Version != "" {
		return version.ValidateProduct(p.cfg.App.Version)
	}

	path := p.cfg.App.PackageJSON
	if path == "" {
		path = filepath.Join(p.cfg.Paths.Root, "package.json")
	}

	v, err := version.ReadProduct(path)
	if err != nil {
		return "", fmt.Errorf("product version: %w", err)
	}

	return v, nil
}

// credentialSource returns the configured notarization credential source.
func (p *Packager) credentialSource(ctx context.Context) (notarize.CredentialSource, error) {
	if p.credentials != nil {
		return p.credentials, nil
	}

	creds := p.cfg.Notarization.Credentials

	if creds.Source == config.CredentialSourceAWS {
		src, err := notarize.NewAWSSecretsSource(ctx, creds.SecretID)
		if err != nil {
			return nil, err
		}

		p.credentials = src

		return src, nil
	}

	p.credentials = notarize.NewEnvSource(creds.AppleIDEnv, creds.PasswordEnv, creds.TeamIDEnv)

	return p.credentials, nil
}

func (p *Packager) saveReport(ctx context.Context, req *Request, outcome *Outcome, started time.Time, buildErr error) {
	rep := &release.Report{
		RunID:      outcome.RunID,
		Target:     req.Target,
		Version:    outcome.Version,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Artifacts:  outcome.Artifacts,
		Checksums:  outcome.Checksums,
		Notarized:  outcome.Notarized,
		Cleanup:    outcome.Cleanup,
		Err:        buildErr,
	}

	if err := p.reports.Save(ctx, rep); err != nil {
		logger.WarnKV(ctx, "Failed to save build report", "error", err)
	}
}

func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	if cfg.Paths.Manifest == "" {
		return manifest.Default(cfg.Paths.Root, cfg.Paths.DistAssets), nil
	}

	m, err := manifest.Load(cfg.Paths.Manifest, cfg.Paths.Root)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return m, nil
}
