package packager

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/logger"
)

const (
	archX86_64 = "x86_64"
	archArm64  = "arm64"
)

// Mach-O magic numbers as read big-endian from the first four bytes.
const (
	magicFat    = 0xcafebabe
	magic32     = 0xfeedface
	magic64     = 0xfeedfacf
	magic32Swap = 0xcefaedfe
	magic64Swap = 0xcffaedfe
)

// ArchitectureMismatchError reports a bundled binary built for the wrong architecture.
type ArchitectureMismatchError struct {
	Path string
	Want []string
	Got  []string
	// Fat tells whether the binary is a universal binary.
	Fat bool
}

// Error implements the error interface.
func (e *ArchitectureMismatchError) Error() string {
	kind := "thin"
	if e.Fat {
		kind = "universal"
	}

	return fmt.Sprintf("%s: %s binary has architectures [%s], want [%s]",
		e.Path, kind, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

// requiredSlices returns the architectures a binary must contain.
func requiredSlices(arch release.Architecture) []string {
	switch arch {
	case release.ArchX64:
		return []string{archX86_64}
	case release.ArchArm64:
		return []string{archArm64}
	case release.ArchUniversal:
		return []string{archX86_64, archArm64}
	default:
		return nil
	}
}

// AuditMachO checks that every Mach-O file in paths (files or directories)
// carries the slices arch needs. Host builds are not audited and non-Mach-O
// files are skipped.
func AuditMachO(ctx context.Context, paths []string, arch release.Architecture) error {
	want := requiredSlices(arch)
	if len(want) == 0 {
		return nil
	}

	checked := 0

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if !d.Type().IsRegular() {
				return nil
			}

			got, fat, ok, err := machoArchitectures(path)
			if err != nil || !ok {
				return err
			}

			checked++

			if !containsAll(got, want) || (arch == release.ArchUniversal && !fat) {
				return &ArchitectureMismatchError{Path: path, Want: want, Got: got, Fat: fat}
			}

			return nil
		})
		if err != nil {
			return err
		}
	}

	logger.DebugKV(ctx, "Mach-O architectures verified", "arch", arch.String(), "binaries", checked)

	return nil
}

// machoArchitectures returns the slices of a Mach-O file. ok is false for files
// that are not Mach-O.
func machoArchitectures(path string) (archs []string, fat, ok bool, err error) {
	magic, err := readMagic(path)
	if err != nil {
		return nil, false, false, err
	}

	switch magic {
	case magicFat:
		ff, err := macho.OpenFat(path)
		if err != nil {
			return nil, false, false, fmt.Errorf("parse universal binary %s: %w", path, err)
		}

		defer ff.Close()

		for _, a := range ff.Arches {
			archs = append(archs, cpuName(a.CPU))
		}

		return archs, true, true, nil
	case magic32, magic64, magic32Swap, magic64Swap:
		f, err := macho.Open(path)
		if err != nil {
			return nil, false, false, fmt.Errorf("parse Mach-O %s: %w", path, err)
		}

		defer f.Close()

		return []string{cpuName(f.CPU)}, false, true, nil
	default:
		return nil, false, false, nil
	}
}

func readMagic(path string) (uint32, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = f.Close()
	}()

	var buf [4]byte
	if _, err = io.ReadFull(f, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil
		}

		return 0, err
	}

	return binary.BigEndian.Uint32(buf[:]), nil
}

func cpuName(cpu types.CPU) string {
	switch cpu {
	case types.CPUAmd64:
		return archX86_64
	case types.CPUArm64:
		return archArm64
	default:
		return strings.ToLower(cpu.String())
	}
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		if !slices.Contains(have, w) {
			return false
		}
	}

	return true
}
