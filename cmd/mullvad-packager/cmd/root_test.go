package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
)

//nolint:paralleltest // Flags are package globals.
func TestMacArchitecture(t *testing.T) {
	cases := []struct {
		universal, x64, arm64 bool
		want                  release.Architecture
	}{
		{want: release.ArchHost},
		{universal: true, want: release.ArchUniversal},
		{x64: true, want: release.ArchX64},
		{arm64: true, want: release.ArchArm64},
	}

	for _, tc := range cases {
		macUniversal, macX64, macArm64 = tc.universal, tc.x64, tc.arm64
		require.Equal(t, tc.want, macArchitecture())
	}

	macUniversal, macX64, macArm64 = false, false, false
}

//nolint:paralleltest // Executes the shared root command.
func TestRootCommand_RejectsInvalidInvocations(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		logFormat = "console"
	})

	rootCmd.SetArgs([]string{"linux", "--log-format", "xml"})
	require.ErrorContains(t, rootCmd.Execute(), "unknown log format")

	rootCmd.SetArgs([]string{"mac", "--log-format", "console", "--universal", "--arm64"})
	require.Error(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"windows", "extra"})
	require.Error(t, rootCmd.Execute())
}

// TestRootCommand_ConfigFallback uses built-in defaults without a config file
// and picks up mullvad-packager.yaml from the working directory when present.
//
//nolint:paralleltest // Changes the working directory and executes the shared root command.
func TestRootCommand_ConfigFallback(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	configPath, logFormat = "", "console"

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"linux"})
	err := rootCmd.Execute()
	require.Error(t, err)
	require.NotContains(t, err.Error(), "read settings")
	require.ErrorContains(t, err, "product version")

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigFilename), []byte("app: [unterminated"), 0o600))

	rootCmd.SetArgs([]string{"linux"})
	require.ErrorContains(t, rootCmd.Execute(), "unmarshal settings")
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}
