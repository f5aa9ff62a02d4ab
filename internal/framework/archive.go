package framework

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/mullvad/desktop-packager/internal/fsutil"
)

const artifactPermissions = 0o644

// ArchiveTarget packs the bundle into a gzip-compressed tarball.
type ArchiveTarget struct{}

// Ext implements Target.
func (ArchiveTarget) Ext() string {
	return "tar.gz"
}

// Build implements Target.
func (ArchiveTarget) Build(ctx context.Context, job *TargetJob) error {
	level := gzip.DefaultCompression
	if job.Compression == CompressionStore {
		level = gzip.NoCompression
	}

	out, err := fsutil.NewPendingFile(job.Output, artifactPermissions)
	if err != nil {
		return fmt.Errorf("create %s: %w", job.Output, err)
	}

	defer func() {
		_ = out.Cleanup()
	}()

	gz, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(gz)

	if err = writeTree(ctx, tw, job.Source); err != nil {
		return fmt.Errorf("archive %s: %w", job.Source, err)
	}

	if err = tw.Close(); err != nil {
		return err
	}

	if err = gz.Close(); err != nil {
		return err
	}

	return out.Commit()
}

// writeTree adds source and everything below it, named relative to its parent.
func writeTree(ctx context.Context, tw *tar.Writer, source string) error {
	parent := filepath.Dir(source)

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}

		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}

		if err = tw.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return copyInto(tw, path)
	})
}

func copyInto(w io.Writer, path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	_, err = io.Copy(w, f)

	return err
}
