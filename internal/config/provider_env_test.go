package config

import (
	"context"
	"errors"
	"testing"
)

var _ SecretProvider = (*EnvVarProvider)(nil)

func TestEnvVarProviderResolvesDeliveryKey(t *testing.T) {
	setFullTestEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DELIVERY_ENDPOINT", "https://mail.example.com/send")
	t.Setenv("MAILER_TOKEN", "tok-from-platform")
	t.Setenv("DELIVERY_API_KEY_SECRET_PARAM", "MAILER_TOKEN")

	cfg, err := LoadConfig(NewEnvVarProvider())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := cfg.Delivery.APIKey.Unmask(); got != "tok-from-platform" {
		t.Errorf("Delivery.APIKey = %q, want the value of MAILER_TOKEN", got)
	}
}

func TestEnvVarProviderResolvesDatabaseURL(t *testing.T) {
	setFullTestEnv(t)
	t.Setenv("APP_ENV", "staging")
	unsetForTest(t, "DATABASE_URL")
	t.Setenv("RDS_CONNECTION_STRING", "postgres://app@rds:5432/tasks")
	t.Setenv("DATABASE_URL_SECRET_PARAM", "RDS_CONNECTION_STRING")

	cfg, err := LoadDatabaseConfig(NewEnvVarProvider())
	if err != nil {
		t.Fatalf("LoadDatabaseConfig returned error: %v", err)
	}
	if got := cfg.URL.Unmask(); got != "postgres://app@rds:5432/tasks" {
		t.Errorf("URL = %q", got)
	}
}

func TestEnvVarProviderMissingReferenceFailsLoad(t *testing.T) {
	setFullTestEnv(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DELIVERY_ENDPOINT", "https://mail.example.com/send")
	unsetForTest(t, "MAILER_TOKEN")
	t.Setenv("DELIVERY_API_KEY_SECRET_PARAM", "MAILER_TOKEN")

	_, err := LoadConfig(NewEnvVarProvider())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigError", err)
	}
	if cfgErr.Type != ErrSecretResolution {
		t.Errorf("Type = %q, want %q", cfgErr.Type, ErrSecretResolution)
	}
}

func TestEnvVarProviderKeepsEmptyValues(t *testing.T) {
	t.Setenv("MAILER_TOKEN", "")
	unsetForTest(t, "MAILER_TOKEN_ROTATED")

	got, err := NewEnvVarProvider().GetParametersBatch(context.Background(), []string{"MAILER_TOKEN", "MAILER_TOKEN_ROTATED"})
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if v, ok := got["MAILER_TOKEN"]; !ok || v != "" {
		t.Errorf("MAILER_TOKEN = %q, %v; want present and empty", v, ok)
	}
	if _, ok := got["MAILER_TOKEN_ROTATED"]; ok {
		t.Error("unset reference should be omitted")
	}
}
