package fsutil

import (
	"io"
	"os"
	"path/filepath"
)

// PendingFile is written in full and then replaces its destination in one step.
type PendingFile interface {
	io.Writer
	// Commit closes the file and renames it over the destination.
	Commit() error
	// Cleanup discards an uncommitted file. It is safe to call after Commit.
	Cleanup() error
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := NewPendingFile(path, perm)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Cleanup()
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}

	return f.Commit()
}

// CopyFile copies a regular file keeping its permission bits. The destination
// is overwritten in place.
func CopyFile(source, destination string) error {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// CopyFileAtomic copies source over destination so readers see either the old
// or the new content, never a partial file.
func CopyFileAtomic(source, destination string) error {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := NewPendingFile(destination, info.Mode().Perm())
	if err != nil {
		return err
	}

	defer func() {
		_ = out.Cleanup()
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}

	return out.Commit()
}
