// Package config defines the configuration structure for taskpulse processes.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> SecretProvider (Lowest)
//
// Any missing required value or invalid format makes LoadConfig fail, and the
// entry points exit immediately.
package config

import (
	"time"

	"taskpulse/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"taskpulse"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Scheduler     SchedulerConfig
	Delivery      DeliveryConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// IsLocal reports whether the process runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// ServerConfig holds the HTTP push endpoint and SQS poller settings.
type ServerConfig struct {
	Port          string `envconfig:"PORT" default:"8080"`
	PollerEnabled bool   `envconfig:"POLLER_ENABLED" default:"true"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	MigrateOnStart  bool          `envconfig:"DB_MIGRATE_ON_START" default:"false"`
}

// AWSConfig holds the event bus wiring and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// BusDriver selects where events are published: straight to the SQS
	// events queue, or to an SNS topic that fans out to subscribed queues.
	BusDriver      string `envconfig:"EVENT_BUS_DRIVER" default:"sqs" validate:"oneof=sqs sns"`
	EventsQueue    string `envconfig:"SQS_EVENTS" validate:"required_if=BusDriver sqs"`
	EventsTopicARN string `envconfig:"SNS_EVENTS_TOPIC_ARN" validate:"required_if=BusDriver sns"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// SchedulerConfig holds the scanner intervals and windows.
type SchedulerConfig struct {
	DueCheckIntervalSeconds       int           `envconfig:"DUE_CHECK_INTERVAL_SECONDS" default:"3600" validate:"min=1"`
	RecurringCheckIntervalSeconds int           `envconfig:"RECURRING_CHECK_INTERVAL_SECONDS" default:"3600" validate:"min=1"`
	DueThresholdHours             int           `envconfig:"DUE_THRESHOLD_HOURS" default:"24" validate:"min=1"`
	BatchSize                     int           `envconfig:"SCAN_BATCH_SIZE" default:"100" validate:"min=1,max=1000"`
	MutationEventBucket           time.Duration `envconfig:"MUTATION_EVENT_BUCKET" default:"1m"`
	LedgerRetention               time.Duration `envconfig:"LEDGER_RETENTION" default:"720h"`
}

// DueCheckInterval returns the due-date scanner period.
func (s SchedulerConfig) DueCheckInterval() time.Duration {
	return time.Duration(s.DueCheckIntervalSeconds) * time.Second
}

// RecurringCheckInterval returns the recurring-task processor period.
func (s SchedulerConfig) RecurringCheckInterval() time.Duration {
	return time.Duration(s.RecurringCheckIntervalSeconds) * time.Second
}

// DueThreshold returns the width of the due window.
func (s SchedulerConfig) DueThreshold() time.Duration {
	return time.Duration(s.DueThresholdHours) * time.Hour
}

// DeliveryConfig holds the external delivery API settings. An empty Endpoint
// selects the logging stub client.
type DeliveryConfig struct {
	Endpoint      string        `envconfig:"DELIVERY_ENDPOINT" validate:"omitempty,url"`
	APIKey        SecretString  `envconfig:"DELIVERY_API_KEY" validate:"required_with=Endpoint"`
	Timeout       time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"10s"`
	RatePerSecond float64       `envconfig:"DELIVERY_RATE_PER_SECOND" default:"10"`
	Burst         int           `envconfig:"DELIVERY_BURST" default:"20" validate:"min=1"`
	MaxInFlight   int           `envconfig:"DISPATCH_MAX_IN_FLIGHT" default:"32" validate:"min=1"`
	DrainGrace    time.Duration `envconfig:"DRAIN_GRACE" default:"30s"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"TaskPulse"`
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a failure when resolving secret references.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
