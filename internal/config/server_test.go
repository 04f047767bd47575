package config

import (
	"testing"
	"time"
)

func TestDefaultApplicationSettings(t *testing.T) {
	cfg := DefaultApplicationSettings()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("DefaultApplicationSettings Host got %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8000 {
		t.Errorf("DefaultApplicationSettings Port got %d, want 8000", cfg.Port)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Errorf("DefaultApplicationSettings ReadTimeout got %v, want 15s", cfg.ReadTimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("DefaultApplicationSettings ShutdownTimeout got %v, want 30s", cfg.ShutdownTimeout)
	}
	if got := cfg.Address(); got != "127.0.0.1:8000" {
		t.Errorf("Address() got %s, want 127.0.0.1:8000", got)
	}
}

func TestApplicationSettings_Validate(t *testing.T) {
	valid := DefaultApplicationSettings()

	tests := []struct {
		name    string
		mutate  func(*ApplicationSettings)
		wantErr bool
	}{
		{name: "Valid", mutate: func(*ApplicationSettings) {}, wantErr: false},
		{name: "Empty Host", mutate: func(a *ApplicationSettings) { a.Host = "" }, wantErr: true},
		{name: "Port zero", mutate: func(a *ApplicationSettings) { a.Port = 0 }, wantErr: false},
		{name: "Negative port", mutate: func(a *ApplicationSettings) { a.Port = -1 }, wantErr: true},
		{name: "Port too large", mutate: func(a *ApplicationSettings) { a.Port = 65536 }, wantErr: true},
		{name: "Zero read timeout", mutate: func(a *ApplicationSettings) { a.ReadTimeout = 0 }, wantErr: true},
		{name: "Zero shutdown timeout", mutate: func(a *ApplicationSettings) { a.ShutdownTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ApplicationSettings.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
