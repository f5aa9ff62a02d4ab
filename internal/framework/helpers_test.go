package framework

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mullvad/desktop-packager/internal/executor"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	onRun func(name string, args []string) error
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (*executor.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if r.onRun != nil {
		if err := r.onRun(name, args); err != nil {
			return &executor.Result{ExitCode: 1}, err
		}
	}

	return &executor.Result{}, nil
}

func (r *recordingRunner) commandLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		lines = append(lines, strings.Join(c, " "))
	}

	return lines
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}
