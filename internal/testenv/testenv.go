// Package testenv spawns isolated, fully running instances of the service
// for tests: each gets a freshly created and migrated database and its own
// ephemeral port.
package testenv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/database"
	"github.com/leslieo2/dota-analytics/internal/observability"
	"github.com/leslieo2/dota-analytics/internal/server"
	"github.com/leslieo2/dota-analytics/migrations"
)

const (
	subscriberName = "test"
	defaultFilter  = "debug"

	spawnTimeout = time.Minute
	closeTimeout = 5 * time.Second
)

// TestApp is a running instance backed by its own database
type TestApp struct {
	Address      string
	Port         int
	DatabaseName string
	DBPool       *sqlx.DB
	Server       *server.Server

	serveErr chan error
}

var loggingOnce sync.Once

// initLogging installs the test pipeline the first time it is called.
// Records are discarded unless TEST_LOG is set, in which case they go to
// stdout. A pipeline installed by someone else is left alone.
func initLogging() {
	loggingOnce.Do(func() {
		if observability.Installed() {
			return
		}

		sink, err := observability.Sink(logOutput(os.LookupEnv))
		if err != nil {
			panic(fmt.Sprintf("testenv: log sink: %v", err))
		}
		sub, err := observability.NewSubscriber(subscriberName, defaultFilter, sink)
		if err != nil {
			panic(fmt.Sprintf("testenv: log subscriber: %v", err))
		}
		observability.Init(sub)
	})
}

// logOutput picks stdout when TEST_LOG is set, even to an empty value
func logOutput(lookupEnv func(string) (string, bool)) string {
	if _, ok := lookupEnv(constants.EnvTestLog); ok {
		return constants.OutputStdout
	}
	return constants.OutputDiscard
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(os.Getenv(constants.EnvConfigFile), nil)
}

// SpawnE starts an instance and returns it once it accepts connections.
// The database is provisioned before the port is bound, so a provisioning
// failure leaves nothing listening.
func SpawnE(ctx context.Context) (*TestApp, error) {
	initLogging()

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	settings := cfg.Database.WithDatabaseName(uuid.NewString())
	pool, err := database.Provision(ctx, settings, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("failed to provision database: %w", err)
	}

	listener, err := server.Listen("127.0.0.1", 0)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	var opts []server.Option
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Observability.Metrics.Path))
	}
	srv, err := server.New(listener, pool, cfg.Application, opts...)
	if err != nil {
		_ = listener.Close()
		_ = pool.Close()
		return nil, fmt.Errorf("failed to build server: %w", err)
	}

	app := &TestApp{
		Address:      srv.URL(),
		Port:         srv.Port(),
		DatabaseName: settings.DatabaseName,
		DBPool:       srv.Pool(),
		Server:       srv,
		serveErr:     make(chan error, 1),
	}
	go func() { app.serveErr <- srv.Serve() }()

	observability.FromContext(ctx).Named("testenv").Debug("test app spawned",
		zap.String("address", app.Address),
		zap.String("database", app.DatabaseName),
	)
	return app, nil
}

// Spawn is SpawnE for tests: failures are fatal and the instance is shut
// down when the test ends. The database is kept for inspection.
func Spawn(t testing.TB) *TestApp {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), spawnTimeout)
	defer cancel()

	app, err := SpawnE(ctx)
	if err != nil {
		t.Fatalf("failed to spawn test app: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			t.Errorf("failed to stop test app: %v", err)
		}
	})
	return app
}

// Close stops serving and closes the pool
func (a *TestApp) Close(ctx context.Context) error {
	shutdownErr := a.Server.Shutdown(ctx)

	var serveErr error
	select {
	case serveErr = <-a.serveErr:
	case <-ctx.Done():
		serveErr = ctx.Err()
	}

	return errors.Join(shutdownErr, serveErr, a.DBPool.Close())
}
