package config

import (
	"github.com/leslieo2/dota-analytics/internal/constants"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Application:   DefaultApplicationSettings(),
		Database:      DefaultDatabaseSettings(),
		Observability: DefaultObservabilityConfig(),
		HotReload:     DefaultHotReloadConfig(),
	}
}

// DefaultApplicationSettings returns the default application server settings
func DefaultApplicationSettings() ApplicationSettings {
	return ApplicationSettings{
		Host:            "127.0.0.1",
		Port:            8000,
		ReadTimeout:     constants.ServerReadTimeout,
		WriteTimeout:    constants.ServerWriteTimeout,
		IdleTimeout:     constants.ServerIdleTimeout,
		ShutdownTimeout: constants.ServerShutdownTimeout,
	}
}

// DefaultDatabaseSettings returns settings for a local development Postgres
func DefaultDatabaseSettings() DatabaseSettings {
	return DatabaseSettings{
		Host:            "localhost",
		Port:            5432,
		Username:        "postgres",
		Password:        NewSecret("password"),
		DatabaseName:    "dota_analytics",
		RequireSSL:      false,
		MaxOpenConns:    constants.DatabaseMaxOpenConns,
		MaxIdleConns:    constants.DatabaseMaxIdleConns,
		ConnMaxLifetime: constants.DatabaseConnMaxLifetime,
	}
}

// DefaultObservabilityConfig returns the default observability configuration
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Logging: DefaultLoggingConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    constants.PathMetrics,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: constants.ServiceName,
			Exporter:    constants.ExporterStdout,
		},
	}
}

// DefaultLoggingConfig returns default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:       "info",
		Output:      constants.OutputStdout,
		Development: false,
	}
}
