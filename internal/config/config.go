package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a packaging run needs besides the command-line flags.
type Config struct {
	// App describes the application identity and its prebuilt executable.
	App App `yaml:"app"`
	// Paths locates the repository, the prebuilt assets and the output directory.
	Paths Paths `yaml:"paths"`
	// Notarization configures the Apple notarization client.
	Notarization Notarization `yaml:"notarization"`
	// Signing configures macOS code signing performed by the framework.
	Signing Signing `yaml:"signing"`
	// Targets selects how installer artifacts are produced per platform.
	Targets Targets `yaml:"targets"`
	// Installer holds installer-format options.
	Installer Installer `yaml:"installer"`
}

// App describes the application being packaged.
type App struct {
	// ID is the bundle identifier, also used for notarization.
	ID string `yaml:"id"`
	// ProductName is the user-facing application name.
	ProductName string `yaml:"product_name"`
	// Copyright is written into the bundle metadata.
	Copyright string `yaml:"copyright"`
	// ExecutableName is the file name of the Linux executable.
	ExecutableName string `yaml:"executable_name"`
	// Version overrides the version read from PackageJSON.
	Version string `yaml:"version"`
	// PackageJSON is the package manifest holding the product version.
	PackageJSON string `yaml:"package_json"`
	// Executable is the prebuilt application binary copied into the bundle.
	Executable string `yaml:"executable"`
}

// Paths locates inputs and outputs of a packaging run.
type Paths struct {
	// Root is the repository root.
	Root string `yaml:"root"`
	// DistAssets holds the prebuilt binaries and assets.
	DistAssets string `yaml:"dist_assets"`
	// Output receives unpacked bundles, artifacts and build reports.
	Output string `yaml:"output"`
	// Manifest optionally replaces the built-in resource manifest.
	Manifest string `yaml:"manifest"`
}

// Notarization configures the notarization client.
type Notarization struct {
	// Tool is the command used to reach notarytool and stapler.
	Tool string `yaml:"tool"`
	// Timeout bounds a single notarization call; zero selects DefaultNotarizationTimeout.
	Timeout time.Duration `yaml:"timeout"`
	// Staple attaches the notarization ticket after acceptance.
	Staple *bool `yaml:"staple"`
	// Credentials selects where the Apple ID credentials come from.
	Credentials Credentials `yaml:"credentials"`
}

// Credentials configures the credential source.
type Credentials struct {
	// Source is CredentialSourceEnv or CredentialSourceAWS.
	Source string `yaml:"source"`
	// SecretID names the AWS Secrets Manager secret.
	SecretID string `yaml:"secret_id"`
	// AppleIDEnv names the variable holding the Apple ID.
	AppleIDEnv string `yaml:"apple_id_env"`
	// PasswordEnv names the variable holding the app-specific password.
	PasswordEnv string `yaml:"password_env"`
	// TeamIDEnv names the variable holding the developer team id.
	TeamIDEnv string `yaml:"team_id_env"`
}

// Signing configures macOS code signing.
type Signing struct {
	// Identity is passed to codesign; empty skips signing.
	Identity string `yaml:"identity"`
	// Entitlements is an optional entitlements plist.
	Entitlements string `yaml:"entitlements"`
	// InstallerIdentity signs the macOS installer package; empty leaves it unsigned.
	InstallerIdentity string `yaml:"installer_identity"`
}

// Targets selects the installer target per platform.
type Targets struct {
	MacOS   Target `yaml:"macos"`
	Windows Target `yaml:"windows"`
	Linux   Target `yaml:"linux"`
}

// Target configures one installer target.
type Target struct {
	// Kind is TargetArchive, TargetPkg, TargetNSIS, TargetAppImage or TargetCommand.
	Kind string `yaml:"kind"`
	// Ext is the artifact extension for command targets.
	Ext string `yaml:"ext"`
	// Command is the program and argument templates for command targets.
	Command []string `yaml:"command"`
}

// Installer holds the installer-format options.
type Installer struct {
	NSIS     NSIS     `yaml:"nsis"`
	Pkg      Pkg      `yaml:"pkg"`
	AppImage AppImage `yaml:"appimage"`
}

// NSIS options for the Windows installer.
type NSIS struct {
	GUID                  string `yaml:"guid"`
	OneClick              bool   `yaml:"one_click"`
	PerMachine            bool   `yaml:"per_machine"`
	AllowElevation        bool   `yaml:"allow_elevation"`
	AllowChangeInstallDir bool   `yaml:"allow_change_install_dir"`
	Script                string `yaml:"script"`
	Include               string `yaml:"include"`
	Sidebar               string `yaml:"sidebar"`
}

// AppImage options for the Linux application image.
type AppImage struct {
	// DesktopFile is the desktop entry placed at the AppDir root.
	DesktopFile string `yaml:"desktop_file"`
	// Icon is the application icon placed next to the desktop entry.
	Icon string `yaml:"icon"`
}

// Pkg options for the macOS installer package.
type Pkg struct {
	AllowAnywhere        bool `yaml:"allow_anywhere"`
	AllowCurrentUserHome bool `yaml:"allow_current_user_home"`
	Relocatable          bool `yaml:"relocatable"`
	VersionChecked       bool `yaml:"version_checked"`
}

const (
	// DefaultConfigFilename is the configuration file looked up when no path is given.
	DefaultConfigFilename = "mullvad-packager.yaml"

	// DefaultNotarizationTimeout bounds a single notarization call.
	DefaultNotarizationTimeout = time.Hour

	// DefaultFilePermissions is the permission for files written by the packager.
	DefaultFilePermissions = 0o600

	// CredentialSourceEnv reads notarization credentials from environment variables.
	CredentialSourceEnv = "env"
	// CredentialSourceAWS reads notarization credentials from AWS Secrets Manager.
	CredentialSourceAWS = "aws-secrets-manager"

	// TargetArchive produces a tar.gz of the unpacked bundle.
	TargetArchive = "archive"
	// TargetPkg produces a macOS installer package with pkgbuild.
	TargetPkg = "pkg"
	// TargetNSIS compiles a Windows installer with makensis.
	TargetNSIS = "nsis"
	// TargetAppImage builds a Linux AppImage with appimagetool.
	TargetAppImage = "appimage"
	// TargetCommand runs an external installer tool.
	TargetCommand = "command"
)

var (
	errConfigIsNotSet      = errors.New("configuration is not set")
	errAppIDRequired       = errors.New("app id must be provided")
	errProductNameRequired = errors.New("product name must be provided")
	errUnknownSource       = errors.New("unknown credential source")
	errSecretIDRequired    = errors.New("secret id must be provided for aws-secrets-manager")
	errUnknownTarget       = errors.New("unknown target kind")
	errCommandRequired     = errors.New("command target needs a command and an extension")
	errNegativeTimeout     = errors.New("notarization timeout must not be negative")
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// When path is empty and the default file does not exist, defaults are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyAppDefaults(&cfg.App)
	applyPathDefaults(&cfg.Paths)
	applyInstallerDefaults(&cfg.Installer, cfg.Paths.DistAssets)

	if cfg.App.ID == "" {
		return errAppIDRequired
	}

	if cfg.App.ProductName == "" {
		return errProductNameRequired
	}

	if err := validateNotarization(&cfg.Notarization); err != nil {
		return err
	}

	if err := validateTarget(&cfg.Targets.MacOS, TargetPkg); err != nil {
		return fmt.Errorf("macos target: %w", err)
	}

	if err := validateTarget(&cfg.Targets.Windows, TargetNSIS); err != nil {
		return fmt.Errorf("windows target: %w", err)
	}

	if err := validateTarget(&cfg.Targets.Linux, TargetAppImage); err != nil {
		return fmt.Errorf("linux target: %w", err)
	}

	return nil
}

// ShouldStaple reports whether accepted submissions are stapled.
func (n Notarization) ShouldStaple() bool {
	return n.Staple == nil || *n.Staple
}

func applyAppDefaults(app *App) {
	if app.ID == "" {
		app.ID = "net.mullvad.vpn"
	}

	if app.ProductName == "" {
		app.ProductName = "Mullvad VPN"
	}

	if app.Copyright == "" {
		app.Copyright = "Mullvad VPN AB"
	}

	if app.ExecutableName == "" {
		app.ExecutableName = "mullvad-vpn"
	}
}

func applyPathDefaults(paths *Paths) {
	if paths.Root == "" {
		paths.Root = "."
	}

	if paths.DistAssets == "" {
		paths.DistAssets = filepath.Join(paths.Root, "dist-assets")
	}

	if paths.Output == "" {
		paths.Output = filepath.Join(paths.Root, "dist")
	}
}

func applyInstallerDefaults(installer *Installer, distAssets string) {
	if installer.NSIS.GUID == "" {
		installer.NSIS.GUID = "2A356FD4-03B7-4F45-99B4-737BE580DC82"
		installer.NSIS.PerMachine = true
		installer.NSIS.AllowElevation = true
	}

	if installer.NSIS.Script == "" {
		installer.NSIS.Script = filepath.Join(distAssets, "windows", "installer.nsi")
	}

	if installer.NSIS.Include == "" {
		installer.NSIS.Include = filepath.Join(distAssets, "windows", "installer.nsh")
	}

	if installer.NSIS.Sidebar == "" {
		installer.NSIS.Sidebar = filepath.Join(distAssets, "windows", "installersidebar.bmp")
	}

	if installer.AppImage.DesktopFile == "" {
		installer.AppImage.DesktopFile = filepath.Join(distAssets, "linux", "mullvad-vpn.desktop")
	}

	if installer.AppImage.Icon == "" {
		installer.AppImage.Icon = filepath.Join(distAssets, "icon.png")
	}
}

func validateNotarization(n *Notarization) error {
	if n.Tool == "" {
		n.Tool = "xcrun"
	}

	if n.Timeout < 0 {
		return errNegativeTimeout
	}

	if n.Timeout == 0 {
		n.Timeout = DefaultNotarizationTimeout
	}

	creds := &n.Credentials
	if creds.Source == "" {
		creds.Source = CredentialSourceEnv
	}

	if creds.AppleIDEnv == "" {
		creds.AppleIDEnv = "NOTARIZE_APPLE_ID"
	}

	if creds.PasswordEnv == "" {
		creds.PasswordEnv = "NOTARIZE_APPLE_ID_PASSWORD"
	}

	if creds.TeamIDEnv == "" {
		creds.TeamIDEnv = "NOTARIZE_TEAM_ID"
	}

	switch creds.Source {
	case CredentialSourceEnv:
	case CredentialSourceAWS:
		if creds.SecretID == "" {
			return errSecretIDRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownSource, creds.Source)
	}

	return nil
}

func validateTarget(t *Target, kind string) error {
	if t.Kind == "" {
		t.Kind = kind
	}

	switch t.Kind {
	case TargetArchive, TargetPkg, TargetNSIS, TargetAppImage:
		return nil
	case TargetCommand:
		if len(t.Command) == 0 || t.Ext == "" {
			return errCommandRequired
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownTarget, t.Kind)
	}
}
