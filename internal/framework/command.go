package framework

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mullvad/desktop-packager/internal/domain/release"
	"github.com/mullvad/desktop-packager/internal/executor"
)

var (
	errEmptyCommand    = errors.New("command target has no program")
	errArtifactMissing = errors.New("command did not produce the artifact")
)

// CommandTarget runs an external installer tool such as makensis or appimagetool.
// Arguments may reference ${appOutDir}, ${source}, ${output}, ${version},
// ${productName}, ${productFilename}, ${appId} and ${arch}.
type CommandTarget struct {
	runner  executor.Runner
	ext     string
	command []string
}

// NewCommandTarget creates a target producing .ext artifacts with command.
func NewCommandTarget(runner executor.Runner, ext string, command []string) *CommandTarget {
	return &CommandTarget{
		runner:  runner,
		ext:     ext,
		command: append([]string(nil), command...),
	}
}

// Ext implements Target.
func (t *CommandTarget) Ext() string {
	return t.ext
}

// Build implements Target.
func (t *CommandTarget) Build(ctx context.Context, job *TargetJob) error {
	if len(t.command) == 0 {
		return errEmptyCommand
	}

	bindings := release.Bindings{
		"appOutDir":       job.AppOutDir,
		"source":          job.Source,
		"output":          job.Output,
		"version":         job.Config.Version,
		"productName":     job.Config.ProductName,
		"productFilename": job.Config.ProductFilename(),
		"appId":           job.Config.AppID,
		"arch":            ArchName(job.Config.Arch),
	}

	args := make([]string, len(t.command))
	for i, arg := range t.command {
		args[i] = release.Resolve(arg, bindings)
	}

	if _, err := t.runner.Run(ctx, args[0], args[1:]...); err != nil {
		return err
	}

	if _, err := os.Stat(job.Output); err != nil {
		return fmt.Errorf("%w: %s", errArtifactMissing, job.Output)
	}

	return nil
}
