package packager

import (
	"context"
	"os"
	"slices"
	"sync"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/logger"
)

// CleanupResult is the outcome of removing one ledger entry.
type CleanupResult = release.CleanupEntry

// Ledger records intermediate output directories that must be removed when the
// run ends.
type Ledger struct {
	mu     sync.Mutex
	paths  []string
	remove func(string) error
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{remove: os.RemoveAll}
}

// Append records path. Paths already recorded are ignored.
func (l *Ledger) Append(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !slices.Contains(l.paths, path) {
		l.paths = append(l.paths, path)
	}
}

// Paths returns the recorded paths in insertion order.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.paths)
}

// Cleanup removes every recorded directory and returns one result per entry.
// Directories that are already gone count as removed, so calling Cleanup again
// is harmless. Failures are logged and returned, never raised.
func (l *Ledger) Cleanup(ctx context.Context) []CleanupResult {
	paths := l.Paths()
	results := make([]CleanupResult, 0, len(paths))

	for _, path := range paths {
		err := l.remove(path)
		if err != nil {
			logger.WarnKV(ctx, "Failed to remove output directory", "path", path, "error", err)
		} else {
			logger.DebugKV(ctx, "Removed output directory", "path", path)
		}

		results = append(results, CleanupResult{Path: path, Err: err})
	}

	return results
}
