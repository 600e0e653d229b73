package config

import (
	"context"
	"os"
)

// EnvVarProvider implements SecretProvider by treating each reference as the
// name of another environment variable. Deployments that inject secrets under
// platform-specific names (for example a mounted MAILER_TOKEN) point
// DELIVERY_API_KEY_SECRET_PARAM at that name.
type EnvVarProvider struct{}

// NewEnvVarProvider creates a new EnvVarProvider.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{}
}

// GetParametersBatch looks up each key with os.LookupEnv. Missing keys are
// omitted from the result.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			result[key] = val
		}
	}
	return result, nil
}
