package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/leslieo2/dota-analytics/internal/constants"
)

// LoadConfig loads configuration with precedence:
// 1. Explicit CLI flags (highest priority)
// 2. Environment variables
// 3. Configuration file values
// 4. Default configuration values (lowest priority)
func LoadConfig(configFile string, cliFlags *CLIFlags) (*Config, error) {
	config := DefaultConfig()

	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if cliFlags != nil {
		overrideWithCLI(config, cliFlags)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// CLIFlags contains CLI flag values that can override configuration.
// When Flags is set only flags marked as changed on it are applied;
// otherwise every non-nil value is applied.
type CLIFlags struct {
	Flags *pflag.FlagSet

	Host     *string
	Port     *int
	LogLevel *string
}

func (f *CLIFlags) changed(name string, value bool) bool {
	if !value {
		return false
	}
	if f.Flags == nil {
		return true
	}
	return f.Flags.Changed(name)
}

// loadFromFile decodes a YAML or JSON file over the given configuration, so
// keys missing from the file keep their current values.
func loadFromFile(filePath string, config *Config) error {
	if !filepath.IsAbs(filePath) {
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			return fmt.Errorf("failed to get absolute path for %s: %w", filePath, err)
		}
		filePath = absPath
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	ext := filepath.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".json":
		err = json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables. Malformed
// numeric, boolean or duration values are reported rather than ignored.
func loadFromEnv(config *Config) error {
	env := envReader{}

	env.str(constants.EnvApplicationHost, &config.Application.Host)
	env.int(constants.EnvApplicationPort, &config.Application.Port)
	env.duration(constants.EnvReadTimeout, &config.Application.ReadTimeout)
	env.duration(constants.EnvWriteTimeout, &config.Application.WriteTimeout)
	env.duration(constants.EnvIdleTimeout, &config.Application.IdleTimeout)
	env.duration(constants.EnvShutdownTimeout, &config.Application.ShutdownTimeout)

	env.str(constants.EnvDatabaseHost, &config.Database.Host)
	env.int(constants.EnvDatabasePort, &config.Database.Port)
	env.str(constants.EnvDatabaseUsername, &config.Database.Username)
	if val := os.Getenv(constants.EnvDatabasePassword); val != "" {
		config.Database.Password = NewSecret(val)
	}
	env.str(constants.EnvDatabaseName, &config.Database.DatabaseName)
	env.bool(constants.EnvDatabaseRequireSSL, &config.Database.RequireSSL)

	env.str(constants.EnvLogLevel, &config.Observability.Logging.Level)
	env.str(constants.EnvLogOutput, &config.Observability.Logging.Output)
	env.bool(constants.EnvMetricsEnabled, &config.Observability.Metrics.Enabled)
	env.bool(constants.EnvTracingEnabled, &config.Observability.Tracing.Enabled)
	env.str(constants.EnvTracingExporter, &config.Observability.Tracing.Exporter)
	env.str(constants.EnvTracingEndpoint, &config.Observability.Tracing.Endpoint)

	env.bool(constants.EnvHotReload, &config.HotReload.Enabled)
	env.duration(constants.EnvHotReloadDebounce, &config.HotReload.Debounce)

	return env.err
}

type envReader struct {
	err error
}

func (e *envReader) str(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func (e *envReader) int(key string, dst *int) {
	val := os.Getenv(key)
	if val == "" || e.err != nil {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	val := os.Getenv(key)
	if val == "" || e.err != nil {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(key string, dst *time.Duration) {
	val := os.Getenv(key)
	if val == "" || e.err != nil {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

// overrideWithCLI overrides configuration with CLI flag values
func overrideWithCLI(config *Config, flags *CLIFlags) {
	if flags.changed("host", flags.Host != nil) {
		config.Application.Host = *flags.Host
	}
	if flags.changed("port", flags.Port != nil) {
		config.Application.Port = *flags.Port
	}
	if flags.changed("log-level", flags.LogLevel != nil) {
		config.Observability.Logging.Level = *flags.LogLevel
	}
}
