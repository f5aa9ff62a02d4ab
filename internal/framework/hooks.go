package framework

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Phase names a step of a framework build.
type Phase string

const (
	// PhaseConfigure checks the build configuration.
	PhaseConfigure Phase = "configure"
	// PhaseBeforeBuild runs before anything is written.
	PhaseBeforeBuild Phase = "beforeBuild"
	// PhaseStage copies the executable and resources into the unpacked bundle.
	PhaseStage Phase = "stage"
	// PhaseAfterPack runs once the unpacked bundle is complete.
	PhaseAfterPack Phase = "afterPack"
	// PhaseSign code-signs the bundle.
	PhaseSign Phase = "sign"
	// PhaseAfterSign runs after signing, whether or not a signer was configured.
	PhaseAfterSign Phase = "afterSign"
	// PhaseArtifact produces the installer artifact.
	PhaseArtifact Phase = "artifact"
	// PhaseAfterAllArtifactBuild runs once every artifact exists.
	PhaseAfterAllArtifactBuild Phase = "afterAllArtifactBuild"
)

// Hook is a callback bound to a phase. T is the phase context.
type Hook[T any] func(ctx context.Context, arg T) error

type namedHook[T any] struct {
	name string
	fn   Hook[T]
}

func (h namedHook[T]) run(ctx context.Context, arg T) error {
	if err := h.fn(ctx, arg); err != nil {
		return fmt.Errorf("%s: %w", h.name, err)
	}

	return nil
}

// Chain is the ordered list of hooks of one phase.
//
// Registered hooks run in registration order and the first failure stops the
// remaining ones. Deferred hooks run afterwards no matter what happened, and
// their errors are combined with the primary one.
type Chain[T any] struct {
	hooks    []namedHook[T]
	deferred []namedHook[T]
}

// Register appends a hook.
func (c *Chain[T]) Register(name string, fn Hook[T]) {
	c.hooks = append(c.hooks, namedHook[T]{name: name, fn: fn})
}

// Defer appends a tear-down hook that always runs.
func (c *Chain[T]) Defer(name string, fn Hook[T]) {
	c.deferred = append(c.deferred, namedHook[T]{name: name, fn: fn})
}

// Len returns the number of registered and deferred hooks.
func (c *Chain[T]) Len() int {
	return len(c.hooks) + len(c.deferred)
}

// Names returns hook names in execution order.
func (c *Chain[T]) Names() []string {
	names := make([]string, 0, c.Len())

	for _, h := range c.hooks {
		names = append(names, h.name)
	}

	for _, h := range c.deferred {
		names = append(names, h.name)
	}

	return names
}

// Run executes the chain.
func (c *Chain[T]) Run(ctx context.Context, arg T) error {
	var err error

	for _, h := range c.hooks {
		if err = h.run(ctx, arg); err != nil {
			break
		}
	}

	for _, h := range c.deferred {
		err = multierr.Append(err, h.run(ctx, arg))
	}

	return err
}

// Hooks groups the chains of every hook phase.
type Hooks struct {
	BeforeBuild           Chain[*BuildContext]
	AfterPack             Chain[*PackContext]
	AfterSign             Chain[*PackContext]
	AfterAllArtifactBuild Chain[*BuildResult]
}
