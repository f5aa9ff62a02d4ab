// Package fsutil holds the filesystem primitives shared by the framework and
// the pipelines: atomic file replacement and permission-preserving copies.
//
// Atomic writes use renameio on Unix. renameio does not support Windows, where
// a temporary file in the target directory is renamed over the destination.
package fsutil
