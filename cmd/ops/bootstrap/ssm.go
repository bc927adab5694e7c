package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Parameter keys under the environment prefix. The deployed functions
// reach them through the _SSM_PARAM pointer variables, for example
// DATABASE_URL_SSM_PARAM=/potager/prod/database_url.
const (
	paramDatabaseURL  = "database_url"
	paramAPITokenHash = "api_token_hash"
)

// ssmOperationTimeout bounds each parameter store call.
const ssmOperationTimeout = 15 * time.Second

// SSMClient is the subset of the SSM API the bootstrap tool uses,
// narrowed for testing.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Manager wraps the SSM client with environment-prefixed paths and
// value-free logging.
type Manager struct {
	client SSMClient
	env    string
	logger *slog.Logger
}

// NewManagerWithClient builds a Manager around an injected client.
func NewManagerWithClient(client SSMClient, env string, logger *slog.Logger) *Manager {
	return &Manager{client: client, env: env, logger: logger}
}

// Path returns the absolute parameter path for a key in this
// environment.
func (m *Manager) Path(key string) string {
	return fmt.Sprintf("/potager/%s/%s", m.env, key)
}

// PutSecret writes a SecureString parameter, overwriting any previous
// value. The value itself is never logged.
func (m *Manager) PutSecret(ctx context.Context, key, value string) error {
	opCtx, cancel := context.WithTimeout(ctx, ssmOperationTimeout)
	defer cancel()

	path := m.Path(key)
	_, err := m.client.PutParameter(opCtx, &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("writing SSM parameter %q: %w", path, err)
	}

	m.logger.Info("SSM parameter written", "path", path, "value_length", len(value))
	return nil
}

// GetSecret reads a SecureString parameter back, decrypted. Used by
// --export-env; the caller handles the plaintext.
func (m *Manager) GetSecret(ctx context.Context, key string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, ssmOperationTimeout)
	defer cancel()

	path := m.Path(key)
	out, err := m.client.GetParameter(opCtx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("reading SSM parameter %q: %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %q has no value", path)
	}

	m.logger.Info("SSM parameter read", "path", path)
	return aws.ToString(out.Parameter.Value), nil
}
