// Package packager orchestrates the per-platform release pipelines.
//
// A pipeline turns the resource manifest and a BuildTarget into one installer
// artifact. It binds architecture and build-mode placeholders before the
// framework copies resources, validates every declared resource after packing,
// applies the platform's post-pack transform, notarizes macOS bundles and
// packages, and removes intermediate output directories at the end.
//
// Bindings live in an explicit release.Environment owned by the run, and each
// hook phase is an ordered chain whose tear-down hooks always run.
package packager
