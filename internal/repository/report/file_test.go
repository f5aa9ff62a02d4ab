package report

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mullvad/desktop-packager/internal/domain/release"
)

func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	report := &release.Report{
		RunID:      "run-1",
		Target:     release.BuildTarget{Platform: release.MacOS, Architecture: release.ArchUniversal},
		Version:    "2024.1",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Artifacts:  []string{"/dist/MullvadVPN-2024.1.pkg"},
		Cleanup: []release.CleanupEntry{
			{Path: "/dist/mac-universal"},
			{Path: "/dist/mac", Err: errors.New("permission denied")},
		},
	}

	require.NoError(t, repo.Save(context.Background(), report))

	loaded, err := repo.Load(context.Background(), release.MacOS)
	require.NoError(t, err)
	require.True(t, loaded.Succeeded())
	require.Equal(t, report.Target, loaded.Target)
	require.Equal(t, report.Artifacts, loaded.Artifacts)
	require.Equal(t, started, loaded.StartedAt)
	require.Len(t, loaded.Cleanup, 2)
	require.NoError(t, loaded.Cleanup[0].Err)
	require.EqualError(t, loaded.Cleanup[1].Err, "permission denied")

	contents, err := os.ReadFile(repo.Path(release.MacOS))
	require.NoError(t, err)
	require.Contains(t, string(contents), "architecture: universal")
	require.Contains(t, string(contents), "succeeded: true")
}

func TestFileRepository_FailedRunAndHostArch(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())

	require.NoError(t, repo.Save(context.Background(), &release.Report{
		RunID:  "run-2",
		Target: release.BuildTarget{Platform: release.Linux},
		Err:    errors.New("can't find file: dist-assets/mullvad-daemon"),
	}))

	loaded, err := repo.Load(context.Background(), release.Linux)
	require.NoError(t, err)
	require.False(t, loaded.Succeeded())
	require.Equal(t, release.ArchHost, loaded.Target.Architecture)
	require.EqualError(t, loaded.Err, "can't find file: dist-assets/mullvad-daemon")
}

func TestFileRepository_Errors(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(t.TempDir())

	_, err := repo.Load(context.Background(), release.Windows)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Save(context.Background(), nil), errReportIsNotSet)
}
