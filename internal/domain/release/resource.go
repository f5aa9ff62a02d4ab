package release

// Scope restricts a resource mapping to a platform.
type Scope string

const (
	// ScopeShared resources are bundled on every platform.
	ScopeShared Scope = "shared"
	// ScopeMacOS resources are bundled only into macOS builds.
	ScopeMacOS Scope = "macos"
	// ScopeWindows resources are bundled only into Windows builds.
	ScopeWindows Scope = "windows"
	// ScopeLinux resources are bundled only into Linux builds.
	ScopeLinux Scope = "linux"
)

// Includes reports whether resources with this scope belong to a build for p.
// An empty scope is treated as shared.
func (s Scope) Includes(p Platform) bool {
	return s == ScopeShared || s == "" || string(s) == string(p)
}

// Kind tells the packaging framework where a mapping is copied to.
type Kind string

const (
	// KindResource mappings go to the bundle's resources directory.
	KindResource Kind = "resource"
	// KindFile mappings go to the bundle root, next to the executable.
	KindFile Kind = "file"
)

// ResourceMapping declares a file that must be copied into the output bundle.
type ResourceMapping struct {
	// Source is a path template that may embed "${env.NAME}" placeholders.
	Source string `yaml:"from"`
	// Destination is relative to the kind's base directory; "." keeps the file name.
	Destination string `yaml:"to"`
	// Scope restricts the mapping to one platform or shares it between all.
	Scope Scope `yaml:"scope"`
	// Kind selects the base directory; the zero value means KindResource.
	Kind Kind `yaml:"kind,omitempty"`
}

// Resolve returns the source path with placeholders substituted from b.
func (m ResourceMapping) Resolve(b Bindings) string {
	return Resolve(m.Source, b)
}

// IsFile reports whether the mapping targets the bundle root.
func (m ResourceMapping) IsFile() bool {
	return m.Kind == KindFile
}

// ForPlatform returns the mappings whose scope includes p, preserving order.
func ForPlatform(mappings []ResourceMapping, p Platform) []ResourceMapping {
	result := make([]ResourceMapping, 0, len(mappings))

	for _, m := range mappings {
		if m.Scope.Includes(p) {
			result = append(result, m)
		}
	}

	return result
}
