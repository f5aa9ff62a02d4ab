package release

import "time"

// Report summarizes one packaging run.
type Report struct {
	RunID      string
	Target     BuildTarget
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time
	// Artifacts are the produced installer artifacts.
	Artifacts []string
	// Checksums maps artifact paths to hex-encoded digests.
	Checksums map[string]string
	// Notarized are the paths accepted by the notarization service.
	Notarized []string
	// Cleanup holds the outcome of every intermediate directory removal.
	Cleanup []CleanupEntry
	// Err is the error that failed the run, if any.
	Err error
}

// CleanupEntry is the outcome of removing one intermediate directory.
type CleanupEntry struct {
	Path string
	Err  error
}

// Succeeded reports whether the run produced its artifacts.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}
