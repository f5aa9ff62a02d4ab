package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/mullvad/desktop-packager/internal/logger"
)

// LockFilename is created in the output directory while a run is in progress.
const LockFilename = ".mullvad-packager.lock"

const lockPermissions = 0o600

var errPackagerRunning = errors.New("another packager is running in this output directory")

// buildLock keeps two packager processes from sharing an output directory.
type buildLock struct {
	path string
}

// acquireLock creates the lock file in dir. A lock left behind by a process
// that is no longer running is taken over.
func acquireLock(ctx context.Context, dir string) (*buildLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, LockFilename)

	for i := 0; i < 2; i++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockPermissions)
		if err == nil {
			_, err = f.WriteString(strconv.Itoa(os.Getpid()))

			if closeErr := f.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				_ = os.Remove(path)

				return nil, fmt.Errorf("write build lock: %w", err)
			}

			return &buildLock{path: path}, nil
		}

		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create build lock: %w", err)
		}

		pid, running := lockOwner(path)
		if running {
			return nil, fmt.Errorf("%w (pid %d)", errPackagerRunning, pid)
		}

		logger.InfoKV(ctx, "Removing stale build lock", "path", path, "pid", pid)

		if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale build lock: %w", err)
		}
	}

	return nil, errPackagerRunning
}

// Release removes the lock file.
func (l *buildLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// lockOwner returns the pid recorded in the lock and whether it is alive.
func lockOwner(path string) (int, bool) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return pid, false
	}

	return pid, true
}
