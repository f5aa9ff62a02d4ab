package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mullvad/desktop-packager/internal/logger"
)

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes a program with arguments.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// CommandRunner runs programs with os/exec.
type CommandRunner struct {
	// dir is the working directory; empty means the current one.
	dir string
	// env is appended to the inherited environment.
	env map[string]string
	// secretFlags lists flags whose following argument is redacted in logs.
	secretFlags map[string]struct{}
}

// Option configures a CommandRunner.
type Option func(*CommandRunner)

// WithDir sets the working directory of executed commands.
func WithDir(dir string) Option {
	return func(r *CommandRunner) {
		r.dir = dir
	}
}

// WithEnv appends a variable to the environment of executed commands.
func WithEnv(name, value string) Option {
	return func(r *CommandRunner) {
		r.env[name] = value
	}
}

// WithSecretFlag hides the value following flag in log output.
func WithSecretFlag(flag string) Option {
	return func(r *CommandRunner) {
		r.secretFlags[flag] = struct{}{}
	}
}

// New creates a CommandRunner.
func New(opts ...Option) *CommandRunner {
	r := &CommandRunner{
		env:         make(map[string]string),
		secretFlags: map[string]struct{}{"--password": {}},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ExitError is returned when a command ran but exited unsuccessfully.
type ExitError struct {
	// Command is the redacted command line.
	Command string
	// Result holds the captured output.
	Result *Result
	// Err is the underlying exec error.
	Err error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit code %d", e.Command, e.Result.ExitCode)
	if stderr := strings.TrimSpace(e.Result.Stderr); stderr != "" {
		msg += ": " + stderr
	}

	return msg
}

// Unwrap returns the underlying exec error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Run executes name with args and waits for it to finish.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	commandLine := r.describe(name, args)
	logger.DebugKV(ctx, "Running command", "command", commandLine)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir

	if len(r.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range r.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ExitError{Command: commandLine, Result: result, Err: err}
	}

	return result, fmt.Errorf("run %s: %w", commandLine, err)
}

// describe renders the command line with secret flag values masked.
func (r *CommandRunner) describe(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)

	redactNext := false

	for _, arg := range args {
		if redactNext {
			parts = append(parts, "***")
			redactNext = false

			continue
		}

		if flag, _, found := strings.Cut(arg, "="); found {
			if _, secret := r.secretFlags[flag]; secret {
				parts = append(parts, flag+"=***")

				continue
			}
		}

		if _, secret := r.secretFlags[arg]; secret {
			redactNext = true
		}

		parts = append(parts, arg)
	}

	return strings.Join(parts, " ")
}
