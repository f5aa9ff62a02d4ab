// Package executor runs the external tools the packager orchestrates
// (xcrun notarytool, stapler, ditto, codesign, pkgbuild and installer
// builders) and captures their output for error reporting.
package executor
