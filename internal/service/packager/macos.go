package packager

import (
	"context"
	"errors"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/framework"
	"github.com/mullvad/desktop-packager/internal/logger"
)

var errNoArtifact = errors.New("framework reported no artifact")

// macOSHooks wires the macOS pipeline: architecture binding, validation and
// architecture audit, two notarization submissions and ledger cleanup.
func (r *run) macOSHooks(h *framework.Hooks) {
	env := r.packager.env
	arch := r.req.Target.Architecture

	h.BeforeBuild.Register("bind architecture", func(ctx context.Context, _ *framework.BuildContext) error {
		if triple, ok := release.ApplyArchitecture(env, arch); ok {
			logger.InfoKV(ctx, "Bound target triple", "triple", triple)
		} else {
			logger.InfoKV(ctx, "Target triple unset", "arch", arch.String())
		}

		return nil
	})

	h.AfterPack.Register("validate resources", r.validate)
	h.AfterPack.Register("audit architectures", func(ctx context.Context, pc *framework.PackContext) error {
		return AuditMachO(ctx, []string{pc.ResourcesDir}, arch)
	})
	h.AfterPack.Defer("clear architecture", clearBinding[*framework.PackContext](env, release.TargetTripleVar))
	h.AfterPack.Defer("record output directory", func(_ context.Context, pc *framework.PackContext) error {
		r.ledger.Append(pc.AppOutDir)

		return nil
	})

	h.AfterSign.Register("record signed output", func(_ context.Context, pc *framework.PackContext) error {
		r.ledger.Append(pc.AppOutDir)

		return nil
	})

	if !r.req.NoNotarization {
		h.AfterSign.Register("notarize app bundle", func(ctx context.Context, pc *framework.PackContext) error {
			return r.submitForNotarization(ctx, pc.BundlePath())
		})

		h.AfterAllArtifactBuild.Register("notarize installer", func(ctx context.Context, res *framework.BuildResult) error {
			if len(res.ArtifactPaths) == 0 {
				return errNoArtifact
			}

			return r.submitForNotarization(ctx, res.ArtifactPaths[0])
		})
	}

	h.AfterAllArtifactBuild.Defer("remove output directories", func(ctx context.Context, _ *framework.BuildResult) error {
		r.cleanup(ctx)

		return nil
	})
}
