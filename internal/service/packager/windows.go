package packager

import (
	"context"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/framework"
	"github.com/mullvad/desktop-packager/internal/logger"
)

// windowsHooks binds the native library build mode and validates resources.
func (r *run) windowsHooks(h *framework.Hooks) {
	env := r.packager.env

	h.BeforeBuild.Register("bind build mode", func(ctx context.Context, _ *framework.BuildContext) error {
		mode := release.ApplyBuildMode(env, r.req.Target.Release)
		logger.InfoKV(ctx, "Bound build mode", "mode", mode)

		return nil
	})

	h.AfterPack.Register("validate resources", r.validate)
	h.AfterPack.Defer("clear build mode", clearBinding[*framework.PackContext](env, release.BuildModeVar))
}
