package packager

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "dist")

	lock, err := acquireLock(context.Background(), dir)
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, LockFilename))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	_, err = acquireLock(context.Background(), dir)
	require.ErrorIs(t, err, errPackagerRunning)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
	require.NoFileExists(t, filepath.Join(dir, LockFilename))
}

func TestBuildLock_StaleLockIsTakenOver(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LockFilename), []byte("not-a-pid"), 0o600))

	lock, err := acquireLock(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}
