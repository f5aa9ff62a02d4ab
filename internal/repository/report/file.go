package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mullvad/desktop-packager/internal/config"
	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/fsutil"
)

// Repository defines persistence operations for run reports.
type Repository interface {
	Load(ctx context.Context, platform release.Platform) (*release.Report, error)
	Save(ctx context.Context, report *release.Report) error
}

// FileRepository stores reports as build-report-<platform>.yaml files.
type FileRepository struct {
	// dir is the directory holding the report files.
	dir string
	// mu serializes access to the report files.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when no report was written for a platform yet.
	ErrNotFound = errors.New("report not found")

	errReportIsNotSet = errors.New("report is not set")
)

// NewFileRepository creates a repository writing into dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir: filepath.Clean(dir),
	}
}

// Path returns the report file of platform.
func (r *FileRepository) Path(platform release.Platform) string {
	return filepath.Join(r.dir, "build-report-"+string(platform)+".yaml")
}

// Load reads the last report of platform.
func (r *FileRepository) Load(_ context.Context, platform release.Platform) (*release.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.Path(platform))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return fromDocument(&doc), nil
}

// Save replaces the report of report.Target.Platform.
func (r *FileRepository) Save(_ context.Context, report *release.Report) error {
	if report == nil {
		return errReportIsNotSet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(toDocument(report))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	if err = fsutil.WriteFile(r.Path(report.Target.Platform), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}

// document is the on-disk representation of a report.
type document struct {
	RunID        string            `yaml:"run_id"`
	Platform     string            `yaml:"platform"`
	Architecture string            `yaml:"architecture"`
	Release      bool              `yaml:"release"`
	Version      string            `yaml:"version,omitempty"`
	StartedAt    time.Time         `yaml:"started_at"`
	FinishedAt   time.Time         `yaml:"finished_at"`
	Succeeded    bool              `yaml:"succeeded"`
	Artifacts    []string          `yaml:"artifacts,omitempty"`
	Checksums    map[string]string `yaml:"checksums,omitempty"`
	Notarized    []string          `yaml:"notarized,omitempty"`
	Cleanup      []cleanupRecord   `yaml:"cleanup,omitempty"`
	Error        string            `yaml:"error,omitempty"`
}

type cleanupRecord struct {
	Path  string `yaml:"path"`
	Error string `yaml:"error,omitempty"`
}

// toDocument converts the domain report into its file representation.
func toDocument(report *release.Report) *document {
	doc := &document{
		RunID:        report.RunID,
		Platform:     string(report.Target.Platform),
		Architecture: report.Target.Architecture.String(),
		Release:      report.Target.Release,
		Version:      report.Version,
		StartedAt:    report.StartedAt.UTC(),
		FinishedAt:   report.FinishedAt.UTC(),
		Succeeded:    report.Succeeded(),
		Artifacts:    report.Artifacts,
		Checksums:    report.Checksums,
		Notarized:    report.Notarized,
	}

	for _, entry := range report.Cleanup {
		record := cleanupRecord{Path: entry.Path}
		if entry.Err != nil {
			record.Error = entry.Err.Error()
		}

		doc.Cleanup = append(doc.Cleanup, record)
	}

	if report.Err != nil {
		doc.Error = report.Err.Error()
	}

	return doc
}

// fromDocument converts the file representation back into the domain report.
// Errors come back as opaque values carrying the recorded message.
func fromDocument(doc *document) *release.Report {
	arch := release.Architecture(doc.Architecture)
	if arch == "host" {
		arch = release.ArchHost
	}

	report := &release.Report{
		RunID: doc.RunID,
		Target: release.BuildTarget{
			Platform:     release.Platform(doc.Platform),
			Architecture: arch,
			Release:      doc.Release,
		},
		Version:    doc.Version,
		StartedAt:  doc.StartedAt,
		FinishedAt: doc.FinishedAt,
		Artifacts:  doc.Artifacts,
		Checksums:  doc.Checksums,
		Notarized:  doc.Notarized,
	}

	for _, record := range doc.Cleanup {
		entry := release.CleanupEntry{Path: record.Path}
		if record.Error != "" {
			entry.Err = errors.New(record.Error)
		}

		report.Cleanup = append(report.Cleanup, entry)
	}

	if doc.Error != "" {
		report.Err = errors.New(doc.Error)
	}

	return report
}
