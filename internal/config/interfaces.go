package config

import "context"

// SecretProvider resolves secret references named by _SECRET_PARAM
// variables. Keys are provider-specific references; the result maps each
// resolved key to its plaintext value and omits keys it could not find.
type SecretProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
