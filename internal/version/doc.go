// Package version exposes build metadata for the packager and reads the
// version of the product being packaged.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. ReadProduct extracts the application version from package.json
// so artifact names match the released version.
package version
