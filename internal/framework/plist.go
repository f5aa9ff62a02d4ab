package framework

import (
	"fmt"
	"maps"

	"howett.net/plist"

	"github.com/mullvad/desktop-packager/internal/fsutil"
)

const plistPermissions = 0o644

// infoPlist builds the Info.plist dictionary of a macOS bundle.
func infoPlist(cfg *Config, executable string) map[string]any {
	info := map[string]any{
		"CFBundleDevelopmentRegion":     "en",
		"CFBundleDisplayName":           cfg.ProductName,
		"CFBundleExecutable":            executable,
		"CFBundleIdentifier":            cfg.AppID,
		"CFBundleInfoDictionaryVersion": "6.0",
		"CFBundleName":                  cfg.ProductName,
		"CFBundlePackageType":           "APPL",
		"CFBundleShortVersionString":    cfg.Version,
		"CFBundleVersion":               cfg.Version,
	}

	if cfg.Copyright != "" {
		info["NSHumanReadableCopyright"] = "Copyright © " + cfg.Copyright
	}

	maps.Copy(info, cfg.ExtendInfo)

	return info
}

func writeInfoPlist(path string, cfg *Config, executable string) error {
	data, err := plist.MarshalIndent(infoPlist(cfg, executable), plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode Info.plist: %w", err)
	}

	if err = fsutil.WriteFile(path, data, plistPermissions); err != nil {
		return fmt.Errorf("write Info.plist: %w", err)
	}

	return nil
}
