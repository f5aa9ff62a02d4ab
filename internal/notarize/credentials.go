package notarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Default environment variable names read by EnvSource.
const (
	DefaultAppleIDEnv  = "NOTARIZE_APPLE_ID"
	DefaultPasswordEnv = "NOTARIZE_APPLE_ID_PASSWORD"
	DefaultTeamIDEnv   = "NOTARIZE_TEAM_ID"
)

var (
	errAppleIDRequired  = errors.New("apple id must be provided")
	errPasswordRequired = errors.New("app-specific password must be provided")
	errTeamIDRequired   = errors.New("team id must be provided")
	errSecretIDRequired = errors.New("secret id must be provided")
	errEmptySecret      = errors.New("secret has no string value")
)

// Credentials authenticate a notarytool submission.
type Credentials struct {
	AppleID  string `json:"apple_id"`
	Password string `json:"password"`
	TeamID   string `json:"team_id"`
}

// Validate reports the first missing field.
func (c Credentials) Validate() error {
	switch {
	case c.AppleID == "":
		return errAppleIDRequired
	case c.Password == "":
		return errPasswordRequired
	case c.TeamID == "":
		return errTeamIDRequired
	}

	return nil
}

// CredentialSource resolves notarization credentials on demand.
type CredentialSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// EnvSource reads credentials from environment variables.
type EnvSource struct {
	AppleIDVar  string
	PasswordVar string
	TeamIDVar   string

	lookup func(string) (string, bool)
}

// NewEnvSource reads credentials from the given variables, falling back to
// the defaults for empty names.
func NewEnvSource(appleIDVar, passwordVar, teamIDVar string) *EnvSource {
	return &EnvSource{
		AppleIDVar:  orDefault(appleIDVar, DefaultAppleIDEnv),
		PasswordVar: orDefault(passwordVar, DefaultPasswordEnv),
		TeamIDVar:   orDefault(teamIDVar, DefaultTeamIDEnv),
		lookup:      os.LookupEnv,
	}
}

// Credentials implements CredentialSource.
func (s *EnvSource) Credentials(_ context.Context) (Credentials, error) {
	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(name string) string {
		v, _ := lookup(name)

		return v
	}

	creds := Credentials{
		AppleID:  get(s.AppleIDVar),
		Password: get(s.PasswordVar),
		TeamID:   get(s.TeamIDVar),
	}

	if err := creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials from environment: %w", err)
	}

	return creds, nil
}

type secretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsSource reads credentials from a JSON secret in AWS Secrets Manager.
// The secret is fetched once and reused.
type AWSSecretsSource struct {
	api      secretsAPI
	secretID string

	mu     sync.Mutex
	cached *Credentials
}

// NewAWSSecretsSource loads the default AWS configuration and prepares a source
// for secretID.
func NewAWSSecretsSource(ctx context.Context, secretID string) (*AWSSecretsSource, error) {
	if secretID == "" {
		return nil, errSecretIDRequired
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &AWSSecretsSource{
		api:      secretsmanager.NewFromConfig(cfg),
		secretID: secretID,
	}, nil
}

// Credentials implements CredentialSource.
func (s *AWSSecretsSource) Credentials(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("get secret %s: %w", s.secretID, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return Credentials{}, fmt.Errorf("get secret %s: %w", s.secretID, errEmptySecret)
	}

	var creds Credentials
	if err = json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode secret %s: %w", s.secretID, err)
	}

	if err = creds.Validate(); err != nil {
		return Credentials{}, fmt.Errorf("secret %s: %w", s.secretID, err)
	}

	s.cached = &creds

	return creds, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
