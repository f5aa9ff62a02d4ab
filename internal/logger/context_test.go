package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies the global logger is used for bare contexts.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_AttachesFields ensures key-value pairs are emitted on every entry.
func TestWithKV_AttachesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "packager")
	ctx = WithKV(ctx, "platform", "linux")

	InfoKV(ctx, "Staging bundle", "dir", "linux-unpacked")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "packager", entries[0].LoggerName)
	require.Equal(t, "linux", entries[0].ContextMap()["platform"])
	require.Equal(t, "linux-unpacked", entries[0].ContextMap()["dir"])
}
