// Package database opens and provisions the Postgres databases backing the
// service.
package database

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/observability"
)

// Connect opens a pool on settings.DatabaseName and verifies it answers
func Connect(ctx context.Context, settings config.DatabaseSettings) (*sqlx.DB, error) {
	password := settings.Password.Expose()

	db, err := sqlx.ConnectContext(ctx, constants.DriverName, settings.ConnectionString().Expose())
	if err != nil {
		return nil, newError("connect", settings.DatabaseName, password, err)
	}

	configurePool(db, settings)
	return db, nil
}

func configurePool(db *sqlx.DB, settings config.DatabaseSettings) {
	maxOpen := settings.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = constants.DatabaseMaxOpenConns
	}
	maxIdle := settings.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = constants.DatabaseMaxIdleConns
	}
	lifetime := settings.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = constants.DatabaseConnMaxLifetime
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
}

// ValidateName checks that name can be used as a Postgres database name
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidDatabaseName)
	case len(name) > constants.DatabaseMaxIdentifierLength:
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidDatabaseName, name, constants.DatabaseMaxIdentifierLength)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidDatabaseName)
	}
	return nil
}

// Provision creates settings.DatabaseName, opens a pool on it and applies
// every migration found in migrations. The database is left in place when
// a later step fails; the pool is only returned fully migrated.
func Provision(ctx context.Context, settings config.DatabaseSettings, migrations fs.FS) (*sqlx.DB, error) {
	ctx, span := observability.StartSpan(ctx, "provision database", zap.String("database", settings.DatabaseName))
	defer span.End()

	pool, err := provision(ctx, settings, migrations)
	if err != nil {
		span.RecordError(err)
		return nil, observability.WrapError(ctx, err)
	}
	return pool, nil
}

func provision(ctx context.Context, settings config.DatabaseSettings, migrations fs.FS) (*sqlx.DB, error) {
	name := settings.DatabaseName
	password := settings.Password.Expose()

	if err := ValidateName(name); err != nil {
		return nil, newError("validate name", name, password, err)
	}

	migrator, err := NewMigrator(migrations)
	if err != nil {
		return nil, newError("load migrations", name, password, err)
	}

	if err := createDatabase(ctx, settings); err != nil {
		return nil, err
	}

	pool, err := Connect(ctx, settings)
	if err != nil {
		return nil, err
	}

	if err := migrator.Run(ctx, pool); err != nil {
		_ = pool.Close()
		return nil, newError("migrate", name, password, err)
	}
	return pool, nil
}

func createDatabase(ctx context.Context, settings config.DatabaseSettings) error {
	name := settings.DatabaseName
	password := settings.Password.Expose()

	admin, err := sqlx.ConnectContext(ctx, constants.DriverName, settings.ConnectionStringWithoutDB().Expose())
	if err != nil {
		return newError("connect to server", name, password, err)
	}
	defer admin.Close()
	admin.SetMaxOpenConns(1)

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return newError("create database", name, password, err)
	}

	observability.FromContext(ctx).Named("database").Info("database created")
	return nil
}
