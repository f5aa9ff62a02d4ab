package framework

import (
	"context"
	"fmt"

	"github.com/mullvad/desktop-packager/internal/executor"
)

// CodesignSigner signs bundles with Apple's codesign tool using the hardened runtime.
type CodesignSigner struct {
	runner       executor.Runner
	identity     string
	entitlements string
}

// NewCodesignSigner creates a signer for identity. entitlements may be empty.
func NewCodesignSigner(runner executor.Runner, identity, entitlements string) *CodesignSigner {
	return &CodesignSigner{
		runner:       runner,
		identity:     identity,
		entitlements: entitlements,
	}
}

// Sign implements Signer.
func (s *CodesignSigner) Sign(ctx context.Context, path string) error {
	args := []string{"--force", "--deep", "--options", "runtime", "--timestamp", "--sign", s.identity}

	if s.entitlements != "" {
		args = append(args, "--entitlements", s.entitlements)
	}

	args = append(args, path)

	if _, err := s.runner.Run(ctx, "codesign", args...); err != nil {
		return fmt.Errorf("codesign %s: %w", path, err)
	}

	return nil
}
