package framework

import "context"

// Target produces an installer artifact from an unpacked bundle.
type Target interface {
	// Ext is the artifact file extension without a leading dot.
	Ext() string
	// Build writes the artifact to job.Output.
	Build(ctx context.Context, job *TargetJob) error
}

// TargetJob describes one artifact to produce.
type TargetJob struct {
	// Config is the build configuration.
	Config *Config
	// AppOutDir is the unpacked bundle directory.
	AppOutDir string
	// Source is the bundle to package: the .app on macOS, AppOutDir elsewhere.
	Source string
	// Output is the artifact path.
	Output string
	// Compression applies to archive artifacts.
	Compression Compression
}
