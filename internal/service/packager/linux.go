package packager

import (
	"context"

	"github.com/mullvad/desktop-packager/internal/framework"
)

// linuxHooks validates resources and installs the launcher script.
func (r *run) linuxHooks(h *framework.Hooks) {
	h.AfterPack.Register("validate resources", r.validate)
	h.AfterPack.Register("install launcher", func(ctx context.Context, pc *framework.PackContext) error {
		return SwapLauncher(ctx, pc.AppOutDir, r.packager.cfg.App.ExecutableName)
	})
}
