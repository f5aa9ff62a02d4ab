package notarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"howett.net/plist"

	"github.com/mullvad/desktop-packager/internal/executor"
	"github.com/mullvad/desktop-packager/internal/logger"
)

// StatusAccepted is the notarytool status of a successful submission.
const StatusAccepted = "Accepted"

var (
	errPathRequired     = errors.New("notarization path must be provided")
	errBundleIDRequired = errors.New("bundle identifier must be provided")
	errNotAccepted      = errors.New("submission was not accepted")
	errRequestRequired  = errors.New("notarization request must be provided")
	errEmptyOutput      = errors.New("empty notarytool output")
)

// Request describes one notarization submission.
type Request struct {
	// BundleID is the application identifier the submission belongs to.
	BundleID string
	// Path is the signed .app bundle or installer package.
	Path string
	// Credentials authenticate against the notarization service.
	Credentials Credentials
}

// Result is the verdict of a finished submission.
type Result struct {
	// ID is the submission id assigned by the service.
	ID string `plist:"id"`
	// Status is the final submission status.
	Status string `plist:"status"`
	// Message is the human-readable summary.
	Message string `plist:"message"`
}

// Notarizer submits a bundle and blocks until the service answers.
type Notarizer interface {
	Notarize(ctx context.Context, req *Request) (*Result, error)
}

// Error reports a failed notarization of Path.
type Error struct {
	// Path is the submitted bundle or package.
	Path string
	// ID is the submission id, when one was assigned.
	ID string
	// Status is the final status, when the service answered.
	Status string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("notarize ")
	b.WriteString(e.Path)

	if e.Status != "" {
		b.WriteString(" (status ")
		b.WriteString(e.Status)

		if e.ID != "" {
			b.WriteString(", id ")
			b.WriteString(e.ID)
		}

		b.WriteString(")")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Client notarizes with xcrun notarytool.
type Client struct {
	// tool is the program providing the notarytool and stapler subcommands.
	tool string
	// runner executes external commands.
	runner executor.Runner
	// timeout bounds a whole Notarize call; zero means no bound.
	timeout time.Duration
	// staple attaches the ticket to the submitted path after acceptance.
	staple bool
}

// Option configures a Client.
type Option func(*Client)

// WithTool overrides the program used to reach notarytool.
func WithTool(tool string) Option {
	return func(c *Client) {
		if tool != "" {
			c.tool = tool
		}
	}
}

// WithRunner overrides how external commands are executed.
func WithRunner(r executor.Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// WithTimeout bounds every Notarize call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithStaple controls stapling of accepted submissions.
func WithStaple(staple bool) Option {
	return func(c *Client) {
		c.staple = staple
	}
}

// NewClient creates a notarytool client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		tool:   "xcrun",
		runner: executor.New(),
		staple: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Notarize submits req.Path, waits for the verdict and staples accepted submissions.
func (c *Client) Notarize(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, &Error{Err: errRequestRequired}
	}

	if err := validateRequest(req); err != nil {
		return nil, &Error{Path: req.Path, Err: err}
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	submitPath := req.Path

	if isAppBundle(req.Path) {
		archive, cleanup, err := c.zipBundle(ctx, req.Path)
		if err != nil {
			return nil, &Error{Path: req.Path, Err: err}
		}

		defer cleanup()

		submitPath = archive
	}

	logger.InfoKV(ctx, "Submitting for notarization", "path", req.Path, "bundle_id", req.BundleID)

	output, runErr := c.runner.Run(ctx, c.tool,
		"notarytool", "submit", submitPath,
		"--apple-id", req.Credentials.AppleID,
		"--password", req.Credentials.Password,
		"--team-id", req.Credentials.TeamID,
		"--wait",
		"--output-format", "plist",
	)

	result, parseErr := parseResult(output)

	switch {
	case runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, &Error{Path: req.Path, Err: fmt.Errorf("wait for verdict: %w", context.DeadlineExceeded)}
	case parseErr != nil && runErr != nil:
		return nil, &Error{Path: req.Path, Err: runErr}
	case parseErr != nil:
		return nil, &Error{Path: req.Path, Err: parseErr}
	case result.Status != StatusAccepted:
		return result, &Error{
			Path:   req.Path,
			ID:     result.ID,
			Status: result.Status,
			Err:    fmt.Errorf("%w: %s", errNotAccepted, result.Message),
		}
	case runErr != nil:
		return result, &Error{Path: req.Path, ID: result.ID, Status: result.Status, Err: runErr}
	}

	logger.InfoKV(ctx, "Notarization accepted", "path", req.Path, "id", result.ID)

	if c.staple {
		if _, err := c.runner.Run(ctx, c.tool, "stapler", "staple", req.Path); err != nil {
			return result, &Error{Path: req.Path, ID: result.ID, Status: result.Status, Err: fmt.Errorf("staple: %w", err)}
		}
	}

	return result, nil
}

// zipBundle archives an .app bundle the way notarytool expects it.
func (c *Client) zipBundle(ctx context.Context, appPath string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "mullvad-notarize-")
	if err != nil {
		return "", nil, fmt.Errorf("create temporary directory: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(dir)
	}

	archive := filepath.Join(dir, strings.TrimSuffix(filepath.Base(appPath), ".app")+".zip")

	if _, err = c.runner.Run(ctx, "ditto", "-c", "-k", "--keepParent", appPath, archive); err != nil {
		cleanup()

		return "", nil, fmt.Errorf("archive bundle: %w", err)
	}

	return archive, cleanup, nil
}

// callContext returns a context bounded by the client's timeout, if any.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}

// parseResult decodes notarytool's plist output.
func parseResult(output *executor.Result) (*Result, error) {
	if output == nil || strings.TrimSpace(output.Stdout) == "" {
		return nil, errEmptyOutput
	}

	var result Result
	if _, err := plist.Unmarshal([]byte(output.Stdout), &result); err != nil {
		return nil, fmt.Errorf("decode notarytool output: %w", err)
	}

	return &result, nil
}

func validateRequest(req *Request) error {
	if req.Path == "" {
		return errPathRequired
	}

	if req.BundleID == "" {
		return errBundleIDRequired
	}

	return req.Credentials.Validate()
}

func isAppBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimRight(path, `/\`)), ".app")
}
