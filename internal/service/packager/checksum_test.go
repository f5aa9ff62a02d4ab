package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "artifact.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	sum, err := FileChecksum(path)
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	sums, err := checksums([]string{path})
	require.NoError(t, err)
	require.Equal(t, map[string]string{path: sum}, sums)

	_, err = checksums([]string{filepath.Join(t.TempDir(), "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)

	sums, err = checksums(nil)
	require.NoError(t, err)
	require.Nil(t, sums)
}
