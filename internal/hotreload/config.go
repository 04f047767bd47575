package hotreload

import (
	"context"
	"sync/atomic"

	"github.com/leslieo2/dota-analytics/internal/config"
)

// LevelSetter changes the verbosity of a running logging pipeline
type LevelSetter interface {
	SetLevel(level string) error
}

// ConfigReloader reloads the configuration file, keeping the CLI overrides
// it was started with, and applies the settings that can change at runtime.
// Settings that need a restart, such as addresses, are loaded but ignored.
type ConfigReloader struct {
	path    string
	flags   *config.CLIFlags
	level   LevelSetter
	current atomic.Pointer[config.Config]
}

func NewConfigReloader(path string, flags *config.CLIFlags, initial *config.Config, level LevelSetter) *ConfigReloader {
	r := &ConfigReloader{path: path, flags: flags, level: level}
	r.current.Store(initial)
	return r
}

func (r *ConfigReloader) Name() string {
	return "config"
}

// Reload keeps the previous configuration when the new one is invalid
func (r *ConfigReloader) Reload(_ context.Context) error {
	cfg, err := config.LoadConfig(r.path, r.flags)
	if err != nil {
		return err
	}
	if err := r.level.SetLevel(cfg.Observability.Logging.Level); err != nil {
		return err
	}
	r.current.Store(cfg)
	return nil
}

// Current returns the last configuration applied
func (r *ConfigReloader) Current() *config.Config {
	return r.current.Load()
}
