package packager

import (
	"context"
	"os"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/logger"
)

// MissingResourceError reports a declared resource that does not exist after
// placeholder resolution.
type MissingResourceError struct {
	// Path is the resolved source path.
	Path string
	// Template is the source as declared in the manifest.
	Template string
	// Err is the underlying stat error.
	Err error
}

// Error implements the error interface.
func (e *MissingResourceError) Error() string {
	return "can't find file: " + e.Path
}

// Unwrap returns the stat error.
func (e *MissingResourceError) Unwrap() error {
	return e.Err
}

// ValidateResources checks that every resource exists once its placeholders are
// resolved from bindings. It stops at the first missing resource.
func ValidateResources(ctx context.Context, resources []release.ResourceMapping, bindings release.Bindings) error {
	for _, resource := range resources {
		if unbound := release.Unbound(resource.Source, bindings); len(unbound) > 0 {
			logger.WarnKV(ctx, "Placeholders without a binding resolve to an empty string",
				"template", resource.Source, "placeholders", unbound)
		}

		path := resource.Resolve(bindings)

		if _, err := os.Stat(path); err != nil {
			return &MissingResourceError{Path: path, Template: resource.Source, Err: err}
		}
	}

	logger.DebugKV(ctx, "All resources present", "count", len(resources))

	return nil
}
