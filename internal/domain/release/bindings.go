package release

import (
	"maps"
	"regexp"
	"sort"
	"sync"
)

// placeholderPattern matches "${env.NAME}" and the shorter "${NAME}".
var placeholderPattern = regexp.MustCompile(`\$\{(?:env\.)?([A-Za-z_][A-Za-z0-9_]*)\}`)

// Bindings maps placeholder names to their values.
type Bindings map[string]string

// Lookup returns the value bound to name.
func (b Bindings) Lookup(name string) (string, bool) {
	v, ok := b[name]

	return v, ok
}

// Clone returns an independent copy of the bindings.
func (b Bindings) Clone() Bindings {
	if b == nil {
		return Bindings{}
	}

	return maps.Clone(b)
}

// Resolve substitutes every placeholder in template with its binding.
// A placeholder without a binding is replaced by an empty string.
func Resolve(template string, b Bindings) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		return b[name]
	})
}

// Placeholders returns the sorted, unique placeholder names used in template.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}

		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}

	sort.Strings(names)

	return names
}

// Unbound returns the placeholder names in template that have no binding.
func Unbound(template string, b Bindings) []string {
	var missing []string

	for _, name := range Placeholders(template) {
		if _, ok := b[name]; !ok {
			missing = append(missing, name)
		}
	}

	return missing
}

// Environment holds the bindings of a single packaging invocation.
// Pipelines pass it down explicitly instead of mutating process environment
// variables, so sequential or concurrent runs never observe each other's values.
type Environment struct {
	// values holds the currently active bindings.
	values Bindings
	// mu protects values.
	mu sync.RWMutex
}

// NewEnvironment creates an environment with no active bindings.
func NewEnvironment() *Environment {
	return &Environment{
		values: make(Bindings),
	}
}

// Set binds name to value.
func (e *Environment) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.values[name] = value
}

// Unset removes the binding for name.
func (e *Environment) Unset(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.values, name)
}

// Reset removes every binding.
func (e *Environment) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	clear(e.values)
}

// Lookup returns the value currently bound to name.
func (e *Environment) Lookup(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.values[name]

	return v, ok
}

// Snapshot returns a copy of the active bindings.
func (e *Environment) Snapshot() Bindings {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.values.Clone()
}
