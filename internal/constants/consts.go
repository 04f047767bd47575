package constants

import "time"

// ServiceName is the name every production log record is tagged with.
const ServiceName = "dota_analytics"

// Environment variable constants
const (
	EnvApplicationHost = "DOTA_ANALYTICS_APPLICATION_HOST"
	EnvApplicationPort = "DOTA_ANALYTICS_APPLICATION_PORT"
	EnvReadTimeout     = "DOTA_ANALYTICS_READ_TIMEOUT"
	EnvWriteTimeout    = "DOTA_ANALYTICS_WRITE_TIMEOUT"
	EnvIdleTimeout     = "DOTA_ANALYTICS_IDLE_TIMEOUT"
	EnvShutdownTimeout = "DOTA_ANALYTICS_SHUTDOWN_TIMEOUT"

	EnvDatabaseHost       = "DOTA_ANALYTICS_DATABASE_HOST"
	EnvDatabasePort       = "DOTA_ANALYTICS_DATABASE_PORT"
	EnvDatabaseUsername   = "DOTA_ANALYTICS_DATABASE_USERNAME"
	EnvDatabasePassword   = "DOTA_ANALYTICS_DATABASE_PASSWORD"
	EnvDatabaseName       = "DOTA_ANALYTICS_DATABASE_NAME"
	EnvDatabaseRequireSSL = "DOTA_ANALYTICS_DATABASE_REQUIRE_SSL"

	EnvLogLevel          = "DOTA_ANALYTICS_LOG_LEVEL"
	EnvLogOutput         = "DOTA_ANALYTICS_LOG_OUTPUT"
	EnvMetricsEnabled    = "DOTA_ANALYTICS_METRICS_ENABLED"
	EnvTracingEnabled    = "DOTA_ANALYTICS_TRACING_ENABLED"
	EnvTracingExporter   = "DOTA_ANALYTICS_TRACING_EXPORTER"
	EnvTracingEndpoint   = "DOTA_ANALYTICS_TRACING_ENDPOINT"
	EnvHotReload         = "DOTA_ANALYTICS_HOT_RELOAD"
	EnvHotReloadDebounce = "DOTA_ANALYTICS_HOT_RELOAD_DEBOUNCE"
)

// EnvLogFilter overrides the default filter directives of the logging
// pipeline, e.g. "info,server=debug".
const EnvLogFilter = "DOTA_ANALYTICS_LOG"

// Test environment switches
const (
	// EnvTestLog makes test diagnostics visible on stdout when set.
	EnvTestLog = "TEST_LOG"
	// EnvIntegrationTests enables tests that need a reachable Postgres.
	EnvIntegrationTests = "INTEGRATION_TESTS"
	// EnvTestcontainers starts a throwaway Postgres container for the test run.
	EnvTestcontainers = "DOTA_ANALYTICS_TESTCONTAINERS"
)

// DefaultConfigFile is looked up next to the binary when -config is not given.
const DefaultConfigFile = "configuration.yaml"

// EnvConfigFile names the configuration file when -config is not given.
const EnvConfigFile = "DOTA_ANALYTICS_CONFIG"

// Path constants
const (
	PathHealthCheck = "/health_check"
	PathMetrics     = "/metrics"
)

// HTTP header constants
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-Id"
)

// Log output targets
const (
	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"
)

// Trace exporters
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Server timeout constants
const (
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 15 * time.Second
	ServerIdleTimeout     = 60 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	// ServerMaxHeaderBytes caps request header size (1MB)
	ServerMaxHeaderBytes = 1 << 20
)

// Database pool defaults
const (
	DatabaseMaxOpenConns    = 10
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 * time.Minute
	// DatabaseMaxIdentifierLength is the Postgres NAMEDATALEN limit minus the terminator.
	DatabaseMaxIdentifierLength = 63
	// DriverName is the database/sql driver registered by lib/pq.
	DriverName = "postgres"
)

// MigrationsTable records applied schema migrations.
const MigrationsTable = "_schema_migrations"
