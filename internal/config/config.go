package config

import (
	"errors"
	"fmt"
)

// Config represents the unified configuration structure. A loaded Config is
// treated as immutable; per-run variations are made on copies, e.g. with
// DatabaseSettings.WithDatabaseName.
type Config struct {
	Application   ApplicationSettings `json:"application" yaml:"application"`
	Database      DatabaseSettings    `json:"database" yaml:"database"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	HotReload     HotReloadConfig     `json:"hot_reload" yaml:"hot_reload"`
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs []error
	if err := c.Application.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("application config validation failed: %w", err))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database config validation failed: %w", err))
	}
	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability config validation failed: %w", err))
	}
	if err := c.HotReload.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("hot reload config validation failed: %w", err))
	}
	return errors.Join(errs...)
}

