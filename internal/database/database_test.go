package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/migrations"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "uuid", input: "3f2b8e1c-9a4d-4c7e-8f61-0b2d5e9a7c13"},
		{name: "quotes are allowed", input: `odd"name`},
		{name: "exactly 63 bytes", input: strings.Repeat("a", 63)},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 64), wantErr: true},
		{name: "nul byte", input: "a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDatabaseName)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func unreachableSettings() config.DatabaseSettings {
	s := config.DefaultDatabaseSettings()
	s.Host = "127.0.0.1"
	s.Port = 1
	s.Password = config.NewSecret("s3cr3t-hunter2")
	s.DatabaseName = "unreachable"
	return s
}

func TestProvision_FailsBeforeReturningPool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Provision(ctx, unreachableSettings(), migrations.FS)
	require.Error(t, err)
	assert.Nil(t, pool)

	assert.NotContains(t, err.Error(), "s3cr3t-hunter2")

	var dbErr *Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "connect to server", dbErr.Step)
	assert.Equal(t, "unreachable", dbErr.Database)
}

func TestProvision_RejectsInvalidName(t *testing.T) {
	settings := unreachableSettings().WithDatabaseName("")

	_, err := Provision(context.Background(), settings, migrations.FS)
	assert.ErrorIs(t, err, ErrInvalidDatabaseName)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Connect(ctx, unreachableSettings())
	require.Error(t, err)
	assert.Nil(t, db)
	assert.NotContains(t, err.Error(), "s3cr3t-hunter2")
}
