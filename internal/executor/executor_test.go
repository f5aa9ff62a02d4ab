package executor

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDescribe_RedactsSecrets ensures passwords never reach the log line.
func TestDescribe_RedactsSecrets(t *testing.T) {
	t.Parallel()

	r := New(WithSecretFlag("--token"))

	got := r.describe("xcrun", []string{"notarytool", "--password", "hunter2", "--token=abc", "--team-id", "T"})
	require.Equal(t, "xcrun notarytool --password *** --token=*** --team-id T", got)
}

// TestRun_CapturesOutputAndExitCode runs a shell to cover success and failure.
func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	r := New(WithEnv("PACKAGER_TEST_VALUE", "ok"), WithDir(t.TempDir()))

	res, err := r.Run(context.Background(), "sh", "-c", `printf "$PACKAGER_TEST_VALUE"`)
	require.NoError(t, err)
	require.Equal(t, "ok", res.Stdout)
	require.Equal(t, 0, res.ExitCode)

	res, err = r.Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, res.ExitCode)
	require.Contains(t, err.Error(), "boom")
}

// TestRun_MissingProgram returns a plain error without an exit code.
func TestRun_MissingProgram(t *testing.T) {
	t.Parallel()

	_, err := New().Run(context.Background(), "definitely-not-a-real-program-4711")
	require.Error(t, err)

	var exitErr *ExitError
	require.NotErrorAs(t, err, &exitErr)
}
