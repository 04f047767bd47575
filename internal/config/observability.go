package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/leslieo2/dota-analytics/internal/constants"
)

// ObservabilityConfig contains observability-related configuration
type ObservabilityConfig struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// LoggingConfig contains logging configuration. Output is stdout, stderr,
// discard or a file path.
type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Output      string `json:"output" yaml:"output"`
	Development bool   `json:"development" yaml:"development"`
}

// MetricsConfig contains Prometheus configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig contains OpenTelemetry configuration. Exporter is stdout
// or otlp; Endpoint is the OTLP gRPC collector address.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Exporter    string `json:"exporter" yaml:"exporter"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
}

// Validate validates the observability configuration
func (o *ObservabilityConfig) Validate() error {
	if err := o.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if o.Metrics.Enabled && !strings.HasPrefix(o.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path must start with /")
	}
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate validates the tracing configuration
func (t *TracingConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	switch t.Exporter {
	case constants.ExporterStdout:
	case constants.ExporterOTLP:
		if t.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the %s exporter", constants.ExporterOTLP)
		}
	default:
		return fmt.Errorf("unknown exporter %q, must be one of: %s, %s", t.Exporter, constants.ExporterStdout, constants.ExporterOTLP)
	}
	return nil
}

// Validate validates the logging configuration
func (l *LoggingConfig) Validate() error {
	if _, err := zapcore.ParseLevel(strings.ToLower(l.Level)); err != nil {
		return fmt.Errorf("invalid level: %s, must be one of: debug, info, warn, error", l.Level)
	}
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}
