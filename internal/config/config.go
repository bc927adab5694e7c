// Package config defines the global configuration structure for the potager
// service. Configuration is loaded once at process initialization (Lambda
// cold start or server boot) and is immutable thereafter. Code and
// configuration stay strictly separated, 12-Factor style.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format causes startup to fail
// immediately.
package config

import (
	"time"

	"potager/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the potager service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"potager-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Weather       WeatherConfig
	Catalog       CatalogConfig
	Advisor       AdvisorConfig
	Email         EmailConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Feature       FeatureConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public base URL used for links in report emails (no trailing slash).
	// Optional: when empty the report omits the link footer.
	APIExternalURL string `envconfig:"API_EXTERNAL_URL" validate:"omitempty,url"` // e.g., https://api.potager.garden
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	// Resolved from SSM or Env
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`     // Fail fast when pool exhausted
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"` // Detect dead connections during failover
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-west-3"`

	// Resource Identifiers
	ReportQueue string `envconfig:"SQS_REPORTS" validate:"required,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// WeatherConfig holds the Open-Meteo endpoints. The fetch window itself
// is fixed in the weather package: the deficit math assumes exactly the
// lookback of history and two weeks of forecast.
type WeatherConfig struct {
	ForecastURL  string        `envconfig:"WEATHER_FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast"`
	GeocodingURL string        `envconfig:"WEATHER_GEOCODING_URL" default:"https://geocoding-api.open-meteo.com/v1/search"`
	Timeout      time.Duration `envconfig:"WEATHER_TIMEOUT" default:"15s"`
}

// CatalogConfig holds reference data overrides. When OverridePath is empty
// the built-in plant catalog is used.
type CatalogConfig struct {
	OverridePath string `envconfig:"CATALOG_PATH"`
}

// AdvisorConfig holds tuning for the daily advisory cycle.
type AdvisorConfig struct {
	LookbackDays int           `envconfig:"ADVISOR_LOOKBACK_DAYS" default:"7"`
	LockTTL      time.Duration `envconfig:"ADVISOR_LOCK_TTL" default:"10m"` // Job lock lease; stale locks expire after this
}

// EmailConfig holds report email sender identity and SES regional settings.
type EmailConfig struct {
	FromAddress string `envconfig:"EMAIL_FROM_ADDRESS" default:"conseils@potager.garden"`
	FromName    string `envconfig:"EMAIL_FROM_NAME" default:"Potager"`
	SESRegion   string `envconfig:"SES_REGION" default:"eu-west-3"`
}

// SecurityConfig holds API access and CORS settings. APITokenHash is the
// bcrypt hash of the bearer token expected on all v1 endpoints.
type SecurityConfig struct {
	APITokenHash       SecretString `envconfig:"API_TOKEN_HASH" validate:"required"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry and monitoring settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Potager"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// FeatureConfig holds emergency kill switches for system capabilities.
type FeatureConfig struct {
	EnableEmail   bool `envconfig:"FEATURE_ENABLE_EMAIL" default:"true"`
	EnableArchive bool `envconfig:"FEATURE_ENABLE_ARCHIVE" default:"true"`
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
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
