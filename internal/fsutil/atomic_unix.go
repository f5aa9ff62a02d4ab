//go:build !windows

package fsutil

import (
	"os"

	"github.com/google/renameio/v2"
)

type pendingFile struct {
	*renameio.PendingFile
}

func (p pendingFile) Commit() error {
	return p.CloseAtomicallyReplace()
}

// NewPendingFile creates a pending file for path with the given permissions.
func NewPendingFile(path string, perm os.FileMode) (PendingFile, error) {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm), renameio.IgnoreUmask())
	if err != nil {
		return nil, err
	}

	return pendingFile{PendingFile: f}, nil
}
