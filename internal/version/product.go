package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var errNoProductVersion = errors.New("package manifest has no version")

// packageManifest is the subset of package.json the packager reads.
type packageManifest struct {
	Version string `json:"version"`
}

// ReadProduct returns the application version declared in a package.json file.
func ReadProduct(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read package manifest: %w", err)
	}

	var manifest packageManifest
	if err = json.Unmarshal(contents, &manifest); err != nil {
		return "", fmt.Errorf("decode package manifest: %w", err)
	}

	return ValidateProduct(manifest.Version)
}

// ValidateProduct trims and checks a product version string.
// Calendar versions such as "2025.3" and "2025.3-beta1" are accepted.
func ValidateProduct(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errNoProductVersion
	}

	if _, err := semver.NewVersion(v); err != nil {
		return "", fmt.Errorf("invalid product version %q: %w", v, err)
	}

	return v, nil
}
