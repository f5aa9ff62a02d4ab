package packager

import (
	"context"
	"errors"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/framework"
	"github.com/mullvad/desktop-packager/internal/logger"
	"github.com/mullvad/desktop-packager/internal/notarize"
)

// run is the state of a single Build.
type run struct {
	packager *Packager
	req      *Request
	ledger   *Ledger
	outcome  *Outcome
	cleaned  bool
}

// validate is the afterPack resource gate shared by every platform.
func (r *run) validate(ctx context.Context, _ *framework.PackContext) error {
	resources := r.packager.manifest.For(r.req.Target.Platform)

	return ValidateResources(ctx, resources, r.packager.env.Snapshot())
}

// submitForNotarization submits path and records it once accepted.
func (r *run) submitForNotarization(ctx context.Context, path string) error {
	src, err := r.packager.credentialSource(ctx)
	if err != nil {
		return &notarize.Error{Path: path, Err: err}
	}

	creds, err := src.Credentials(ctx)
	if err != nil {
		return &notarize.Error{Path: path, Err: err}
	}

	_, err = r.packager.notarizer.Notarize(ctx, &notarize.Request{
		BundleID:    r.packager.cfg.App.ID,
		Path:        path,
		Credentials: creds,
	})
	if err != nil {
		var notarizeErr *notarize.Error
		if !errors.As(err, &notarizeErr) {
			err = &notarize.Error{Path: path, Err: err}
		}

		return err
	}

	r.outcome.Notarized = append(r.outcome.Notarized, path)

	return nil
}

// cleanup removes the ledger's directories once per run.
func (r *run) cleanup(ctx context.Context) {
	if r.cleaned {
		return
	}

	r.cleaned = true
	r.outcome.Cleanup = append(r.outcome.Cleanup, r.ledger.Cleanup(ctx)...)
}

// clearBinding returns a tear-down hook removing name from the environment.
func clearBinding[T any](env *release.Environment, name string) framework.Hook[T] {
	return func(ctx context.Context, _ T) error {
		env.Unset(name)
		logger.DebugKV(ctx, "Cleared binding", "name", name)

		return nil
	}
}
