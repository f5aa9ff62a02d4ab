package notarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"
	"howett.net/plist"

	"github.com/mullvad/desktop-packager/internal/executor"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	submit func(ctx context.Context) (*executor.Result, error)
	staple error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*executor.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	switch {
	case name == "ditto":
		return &executor.Result{}, nil
	case len(args) > 0 && args[0] == "stapler":
		return &executor.Result{}, f.staple
	default:
		return f.submit(ctx)
	}
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.name+" "+strings.Join(c.args, " "))
	}

	return out
}

func verdict(t *testing.T, status string) func(context.Context) (*executor.Result, error) {
	t.Helper()

	data, err := plist.Marshal(Result{ID: "sub-1", Status: status, Message: "done"}, plist.XMLFormat)
	require.NoError(t, err)

	return func(context.Context) (*executor.Result, error) {
		return &executor.Result{Stdout: string(data)}, nil
	}
}

func testCredentials() Credentials {
	return Credentials{AppleID: "dev@example.com", Password: "secret", TeamID: "TEAM"}
}

// TestNotarize_AcceptedAppIsZippedAndStapled covers the happy path for an .app bundle.
func TestNotarize_AcceptedAppIsZippedAndStapled(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{submit: verdict(t, StatusAccepted)}
	client := NewClient(WithRunner(runner))

	res, err := client.Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/mac/Mullvad VPN.app",
		Credentials: testCredentials(),
	})
	require.NoError(t, err)
	require.Equal(t, "sub-1", res.ID)

	cmds := runner.commands()
	require.Len(t, cmds, 3)
	require.True(t, strings.HasPrefix(cmds[0], "ditto -c -k --keepParent /dist/mac/Mullvad VPN.app"))
	require.Contains(t, cmds[1], "xcrun notarytool submit")
	require.Contains(t, cmds[1], "Mullvad VPN.zip")
	require.Contains(t, cmds[1], "--team-id TEAM")
	require.Contains(t, cmds[1], "--output-format plist")
	require.Equal(t, "xcrun stapler staple /dist/mac/Mullvad VPN.app", cmds[2])
}

// TestNotarize_PackageSubmittedDirectly skips the zip step for installers.
func TestNotarize_PackageSubmittedDirectly(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{submit: verdict(t, StatusAccepted)}
	client := NewClient(WithRunner(runner), WithStaple(false))

	_, err := client.Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/MullvadVPN-2024.1.pkg",
		Credentials: testCredentials(),
	})
	require.NoError(t, err)

	cmds := runner.commands()
	require.Len(t, cmds, 1)
	require.Contains(t, cmds[0], "submit /dist/MullvadVPN-2024.1.pkg")
}

// TestNotarize_Rejected surfaces status and id.
func TestNotarize_Rejected(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{submit: verdict(t, "Invalid")}
	client := NewClient(WithRunner(runner))

	_, err := client.Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/app.pkg",
		Credentials: testCredentials(),
	})
	require.Error(t, err)

	var notarizeErr *Error
	require.ErrorAs(t, err, &notarizeErr)
	require.Equal(t, "Invalid", notarizeErr.Status)
	require.Equal(t, "sub-1", notarizeErr.ID)
	require.ErrorIs(t, err, errNotAccepted)
	require.Len(t, runner.commands(), 1, "rejected submissions must not be stapled")
}

// TestNotarize_Timeout bounds the wait for a verdict.
func TestNotarize_Timeout(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{submit: func(ctx context.Context) (*executor.Result, error) {
		<-ctx.Done()

		return &executor.Result{ExitCode: -1}, ctx.Err()
	}}
	client := NewClient(WithRunner(runner), WithTimeout(20*time.Millisecond))

	_, err := client.Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/app.pkg",
		Credentials: testCredentials(),
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestNotarize_InvalidRequest rejects requests before running anything.
func TestNotarize_InvalidRequest(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{submit: verdict(t, StatusAccepted)}
	client := NewClient(WithRunner(runner))

	_, err := client.Notarize(context.Background(), &Request{Path: "/dist/app.pkg", Credentials: testCredentials()})
	require.ErrorIs(t, err, errBundleIDRequired)

	_, err = client.Notarize(context.Background(), &Request{BundleID: "id", Path: "/dist/app.pkg"})
	require.ErrorIs(t, err, errAppleIDRequired)

	require.Empty(t, runner.commands())
}

// TestEnvSource reads the configured variables.
func TestEnvSource(t *testing.T) {
	t.Parallel()

	vars := map[string]string{
		"APPLE":          "dev@example.com",
		"APPLE_PASS":     "secret",
		DefaultTeamIDEnv: "TEAM",
	}

	src := NewEnvSource("APPLE", "APPLE_PASS", "")
	src.lookup = func(name string) (string, bool) {
		v, ok := vars[name]

		return v, ok
	}

	creds, err := src.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, testCredentials(), creds)

	delete(vars, "APPLE_PASS")

	_, err = src.Credentials(context.Background())
	require.ErrorIs(t, err, errPasswordRequired)
}

type fakeSecrets struct {
	calls  int
	secret *string
	err    error
}

func (f *fakeSecrets) GetSecretValue(
	_ context.Context,
	params *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return &secretsmanager.GetSecretValueOutput{Name: params.SecretId, SecretString: f.secret}, nil
}

// TestAWSSecretsSource decodes the secret once and caches it.
func TestAWSSecretsSource(t *testing.T) {
	t.Parallel()

	api := &fakeSecrets{secret: aws.String(`{"apple_id":"dev@example.com","password":"secret","team_id":"TEAM"}`)}
	src := &AWSSecretsSource{api: api, secretID: "release/notarization"}

	for i := 0; i < 2; i++ {
		creds, err := src.Credentials(context.Background())
		require.NoError(t, err)
		require.Equal(t, testCredentials(), creds)
	}

	require.Equal(t, 1, api.calls)
}

// TestAWSSecretsSource_Errors covers the failure modes.
func TestAWSSecretsSource_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("access denied")

	_, err := (&AWSSecretsSource{api: &fakeSecrets{err: boom}, secretID: "x"}).Credentials(context.Background())
	require.ErrorIs(t, err, boom)

	_, err = (&AWSSecretsSource{api: &fakeSecrets{}, secretID: "x"}).Credentials(context.Background())
	require.ErrorIs(t, err, errEmptySecret)

	_, err = (&AWSSecretsSource{api: &fakeSecrets{secret: aws.String(`{"apple_id":"a"}`)}, secretID: "x"}).
		Credentials(context.Background())
	require.ErrorIs(t, err, errPasswordRequired)

	_, err = NewAWSSecretsSource(context.Background(), "")
	require.ErrorIs(t, err, errSecretIDRequired)
}

// TestNotarize_FailedExitWithAcceptedOutput treats a non-zero exit as failure
// even when the printed verdict is Accepted.
func TestNotarize_FailedExitWithAcceptedOutput(t *testing.T) {
	t.Parallel()

	exitErr := errors.New("exit status 69")
	accepted := verdict(t, StatusAccepted)

	runner := &fakeRunner{submit: func(ctx context.Context) (*executor.Result, error) {
		res, _ := accepted(ctx) //nolint:errcheck // verdict never fails.

		return res, exitErr
	}}
	client := NewClient(WithRunner(runner))

	res, err := client.Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/MullvadVPN-2024.1.pkg",
		Credentials: testCredentials(),
	})
	require.ErrorIs(t, err, exitErr)
	require.NotNil(t, res)

	var notarizeErr *Error
	require.ErrorAs(t, err, &notarizeErr)
	require.Equal(t, "/dist/MullvadVPN-2024.1.pkg", notarizeErr.Path)
	require.Equal(t, "sub-1", notarizeErr.ID)

	for _, cmd := range runner.commands() {
		require.NotContains(t, cmd, "stapler")
	}
}

// TestNotarize_NilRequestAndEmptyOutput rejects a nil request and a silent notarytool.
func TestNotarize_NilRequestAndEmptyOutput(t *testing.T) {
	t.Parallel()

	_, err := NewClient(WithRunner(&fakeRunner{})).Notarize(context.Background(), nil)
	require.ErrorIs(t, err, errRequestRequired)

	runner := &fakeRunner{submit: func(context.Context) (*executor.Result, error) {
		return &executor.Result{}, nil
	}}

	_, err = NewClient(WithRunner(runner)).Notarize(context.Background(), &Request{
		BundleID:    "net.mullvad.vpn",
		Path:        "/dist/MullvadVPN-2024.1.pkg",
		Credentials: testCredentials(),
	})
	require.ErrorIs(t, err, errEmptyOutput)
}
