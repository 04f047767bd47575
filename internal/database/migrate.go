package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/observability"
)

// Migration is one versioned schema change
type Migration struct {
	Version     int64
	Description string
	SQL         string
	Checksum    string
}

type appliedMigration struct {
	Version  int64  `db:"version"`
	Checksum string `db:"checksum"`
	Success  bool   `db:"success"`
}

// Migrator applies migrations in ascending version order, each inside its
// own transaction, and records them in the migrations table. A migration
// that fails is recorded with success = false after its transaction rolls
// back; later runs refuse to continue until that row is dealt with.
type Migrator struct {
	migrations []Migration
	table      string
}

// NewMigrator reads every *.sql file at the root of fsys
func NewMigrator(fsys fs.FS) (*Migrator, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]string, len(files))
	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		version, description, err := parseMigrationName(file)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("%w %d: %s and %s", ErrDuplicateMigration, version, prev, file)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		sum := sha256.Sum256(body)

		migrations = append(migrations, Migration{
			Version:     version,
			Description: description,
			SQL:         string(body),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return &Migrator{migrations: migrations, table: constants.MigrationsTable}, nil
}

func parseMigrationName(file string) (int64, string, error) {
	base := strings.TrimSuffix(path.Base(file), ".sql")
	versionText, description, ok := strings.Cut(base, "_")
	if !ok || description == "" {
		return 0, "", fmt.Errorf("%w: %s", ErrInvalidMigrationName, file)
	}
	version, err := strconv.ParseInt(versionText, 10, 64)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("%w: %s: version must be a positive integer", ErrInvalidMigrationName, file)
	}
	return version, strings.ReplaceAll(description, "_", " "), nil
}

// Migrations returns the migrations in the order they are applied
func (m *Migrator) Migrations() []Migration {
	return append([]Migration(nil), m.migrations...)
}

// Run applies every migration not yet recorded in db
func (m *Migrator) Run(ctx context.Context, db *sqlx.DB) error {
	logger := observability.FromContext(ctx).Named("database")

	if err := m.ensureTable(ctx, db); err != nil {
		return err
	}

	var rows []appliedMigration
	query := fmt.Sprintf("SELECT version, checksum, success FROM %s", m.table)
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	applied := make(map[int64]appliedMigration, len(rows))
	for _, row := range rows {
		applied[row.Version] = row
	}

	for _, mig := range m.migrations {
		if prev, ok := applied[mig.Version]; ok {
			if !prev.Success {
				return fmt.Errorf("%w: %d", ErrDirtyMigration, mig.Version)
			}
			if prev.Checksum != mig.Checksum {
				return fmt.Errorf("%w: %d (%s)", ErrChecksumMismatch, mig.Version, mig.Description)
			}
			continue
		}

		elapsed, rejected, err := m.apply(ctx, db, mig)
		if err != nil {
			if rejected {
				if recErr := m.recordFailure(ctx, db, mig, elapsed); recErr != nil {
					logger.Warn("failed to record failed migration",
						zap.Int64("version", mig.Version),
						zap.Error(recErr),
					)
				}
			}
			return fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		logger.Info("migration applied",
			zap.Int64("version", mig.Version),
			zap.String("description", mig.Description),
			zap.Duration("elapsed", elapsed),
		)
	}
	return nil
}

func (m *Migrator) ensureTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    version BIGINT PRIMARY KEY,
    description TEXT NOT NULL,
    installed_on TIMESTAMPTZ NOT NULL DEFAULT now(),
    success BOOLEAN NOT NULL,
    checksum TEXT NOT NULL,
    execution_time BIGINT NOT NULL
)`, m.table))
	if err != nil {
		return fmt.Errorf("create %s: %w", m.table, err)
	}
	return nil
}

// apply reports rejected when the database refused the migration itself,
// as opposed to failing to open or commit the transaction.
func (m *Migrator) apply(ctx context.Context, db *sqlx.DB, mig Migration) (time.Duration, bool, error) {
	start := time.Now()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return time.Since(start), ctx.Err() == nil, err
	}

	elapsed := time.Since(start)
	insert := fmt.Sprintf(
		"INSERT INTO %s (version, description, success, checksum, execution_time) VALUES ($1, $2, TRUE, $3, $4)",
		m.table,
	)
	if _, err := tx.ExecContext(ctx, insert, mig.Version, mig.Description, mig.Checksum, elapsed.Nanoseconds()); err != nil {
		return elapsed, false, err
	}
	return elapsed, false, tx.Commit()
}

// recordFailure runs outside the rolled back transaction with a context of
// its own.
func (m *Migrator) recordFailure(ctx context.Context, db *sqlx.DB, mig Migration, elapsed time.Duration) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	insert := fmt.Sprintf(
		"INSERT INTO %s (version, description, success, checksum, execution_time) VALUES ($1, $2, FALSE, $3, $4) ON CONFLICT (version) DO NOTHING",
		m.table,
	)
	_, err := db.ExecContext(ctx, insert, mig.Version, mig.Description, mig.Checksum, elapsed.Nanoseconds())
	return err
}
