package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mullvad/desktop-packager/internal/domain/release"
)

// LauncherScript is the Linux wrapper installed under the executable's public name.
const LauncherScript = "mullvad-gui-launcher.sh"

var (
	errEmptySource      = errors.New("resource source must be provided")
	errEmptyDestination = errors.New("resource destination must be provided")
	errUnknownScope     = errors.New("unknown resource scope")
	errUnknownKind      = errors.New("unknown resource kind")
)

// Manifest is the immutable list of resource mappings for all platforms.
type Manifest struct {
	// resources holds every mapping in declaration order.
	resources []release.ResourceMapping
}

// document is the YAML representation of a manifest file.
type document struct {
	Resources []release.ResourceMapping `yaml:"resources"`
}

// New creates a manifest from mappings after validating them.
func New(mappings []release.ResourceMapping) (*Manifest, error) {
	for i, m := range mappings {
		if err := validateMapping(m); err != nil {
			return nil, fmt.Errorf("resource %d (%s): %w", i, m.Source, err)
		}
	}

	return &Manifest{
		resources: append([]release.ResourceMapping(nil), mappings...),
	}, nil
}

// Load reads a manifest from a YAML file. Relative sources are resolved
// against baseDir.
func Load(path, baseDir string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	for i := range doc.Resources {
		if doc.Resources[i].Source != "" && !filepath.IsAbs(doc.Resources[i].Source) {
			doc.Resources[i].Source = filepath.Join(baseDir, doc.Resources[i].Source)
		}
	}

	return New(doc.Resources)
}

// All returns a copy of every mapping.
func (m *Manifest) All() []release.ResourceMapping {
	return append([]release.ResourceMapping(nil), m.resources...)
}

// For returns the shared mappings plus the ones scoped to p.
func (m *Manifest) For(p release.Platform) []release.ResourceMapping {
	return release.ForPlatform(m.resources, p)
}

// validateMapping checks the fields of a single mapping.
func validateMapping(m release.ResourceMapping) error {
	if m.Source == "" {
		return errEmptySource
	}

	if m.Destination == "" {
		return errEmptyDestination
	}

	switch m.Scope {
	case "", release.ScopeShared, release.ScopeMacOS, release.ScopeWindows, release.ScopeLinux:
	default:
		return fmt.Errorf("%w: %q", errUnknownScope, m.Scope)
	}

	switch m.Kind {
	case "", release.KindResource, release.KindFile:
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, m.Kind)
	}

	return nil
}
