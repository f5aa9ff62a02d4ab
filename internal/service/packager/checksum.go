package packager

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Ensure SHA256 available for checksum calculation.
	_ "crypto/sha256"
)

// ChecksumFunction hashes produced artifacts for the build report.
const ChecksumFunction = crypto.SHA256

var errHashUnavailable = errors.New("hash function unavailable")

// FileChecksum returns the hex-encoded ChecksumFunction digest of the file at path.
func FileChecksum(path string) (string, error) {
	if !ChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	hasher := ChecksumFunction.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// checksums digests every artifact. Unreadable artifacts fail the build.
func checksums(artifacts []string) (map[string]string, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}

	sums := make(map[string]string, len(artifacts))

	for _, artifact := range artifacts {
		sum, err := FileChecksum(artifact)
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", artifact, err)
		}

		sums[artifact] = sum
	}

	return sums, nil
}
