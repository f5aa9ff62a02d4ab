//go:build windows

package fsutil

import (
	"errors"
	"os"
	"path/filepath"
)

type pendingFile struct {
	*os.File
	path string
	done bool
}

// NewPendingFile creates a pending file for path with the given permissions.
func NewPendingFile(path string, perm os.FileMode) (PendingFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, err
	}

	if err = f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())

		return nil, err
	}

	return &pendingFile{File: f, path: path}, nil
}

func (p *pendingFile) Commit() error {
	if err := p.Sync(); err != nil {
		return err
	}

	if err := p.Close(); err != nil {
		return err
	}

	if err := os.Rename(p.Name(), p.path); err != nil {
		return err
	}

	p.done = true

	return nil
}

func (p *pendingFile) Cleanup() error {
	if p.done {
		return nil
	}

	p.done = true

	closeErr := p.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}

	return errors.Join(closeErr, os.Remove(p.Name()))
}
