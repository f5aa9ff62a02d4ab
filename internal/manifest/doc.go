// Package manifest declares every file bundled into the desktop installers.
//
// The built-in manifest mirrors the release layout of the repository: shared
// resources, macOS helpers selected by target triple, Windows native libraries
// selected by build mode and the Linux launcher script. A YAML file with the
// same structure can replace it.
package manifest
