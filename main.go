package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/database"
	"github.com/leslieo2/dota-analytics/internal/hotreload"
	"github.com/leslieo2/dota-analytics/internal/observability"
	"github.com/leslieo2/dota-analytics/internal/server"
)

// connectTimeout bounds the initial database connection at startup
const connectTimeout = 30 * time.Second

func main() {
	flags := pflag.NewFlagSet("dota-analytics", pflag.ExitOnError)
	configFile := flags.String("config", "", "Path to configuration file (YAML or JSON)")
	host := flags.String("host", "", "Host to bind the HTTP server to")
	port := flags.Int("port", 0, "Port to bind the HTTP server to (0 picks a free port)")
	logLevel := flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Usage = printUsage

	_ = flags.Parse(os.Args[1:])

	cliFlags := &config.CLIFlags{
		Flags:    flags,
		Host:     host,
		Port:     port,
		LogLevel: logLevel,
	}

	path := resolveConfigFile(*configFile)

	// Load configuration with precedence (CLI > Env > File > Defaults)
	cfg, err := config.LoadConfig(path, cliFlags)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(cfg, path, cliFlags); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

// resolveConfigFile picks the -config flag, then DOTA_ANALYTICS_CONFIG, then
// configuration.yaml in the working directory if it exists.
func resolveConfigFile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(constants.EnvConfigFile); env != "" {
		return env
	}
	if _, err := os.Stat(constants.DefaultConfigFile); err == nil {
		return constants.DefaultConfigFile
	}
	return ""
}

func run(cfg *config.Config, configPath string, cliFlags *config.CLIFlags) error {
	sink, err := observability.Sink(cfg.Observability.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to open log output: %w", err)
	}
	sub, err := observability.NewSubscriber(constants.ServiceName, cfg.Observability.Logging.Level, sink,
		observability.WithDevelopment(cfg.Observability.Logging.Development),
		observability.WithColor(observability.IsTerminal(cfg.Observability.Logging.Output)),
		observability.WithTracing(cfg.Observability.Tracing),
	)
	if err != nil {
		return fmt.Errorf("failed to build logging pipeline: %w", err)
	}
	observability.Init(sub)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sub.Shutdown(ctx)
	}()

	logger := sub.Logger().Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	pool, err := database.Connect(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	defer pool.Close()

	listener, err := server.Listen(cfg.Application.Host, cfg.Application.Port)
	if err != nil {
		return err
	}

	var opts []server.Option
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Observability.Metrics.Path))
	}
	srv, err := server.New(listener, pool, cfg.Application, opts...)
	if err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.HotReload.Enabled && configPath == "" {
		logger.Warn("Hot reload enabled without a configuration file; nothing to watch")
	} else if cfg.HotReload.Enabled {
		manager, err := startHotReload(ctx, cfg, configPath, cliFlags, sub, logger)
		if err != nil {
			return err
		}
		defer manager.Stop()
	}

	logger.Info("Service ready",
		zap.String("address", srv.Addr().String()),
		zap.String("database", cfg.Database.DatabaseName),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Application.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Service stopped")
	return nil
}

func startHotReload(ctx context.Context, cfg *config.Config, configPath string, cliFlags *config.CLIFlags, sub *observability.Subscriber, logger *zap.Logger) (*hotreload.Manager, error) {
	manager, err := hotreload.NewManager(logger.Named("hotreload"), cfg.HotReload.Debounce)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot reload manager: %w", err)
	}
	if err := manager.WatchFile(configPath); err != nil {
		manager.Stop()
		return nil, fmt.Errorf("failed to watch configuration file: %w", err)
	}
	if err := manager.Register(hotreload.NewConfigReloader(configPath, cliFlags, cfg, sub)); err != nil {
		manager.Stop()
		return nil, err
	}
	if err := manager.Start(ctx); err != nil {
		manager.Stop()
		return nil, fmt.Errorf("failed to start hot reload: %w", err)
	}

	logger.Info("Hot reload enabled", zap.String("config", configPath))
	return manager, nil
}

// printUsage prints the usage information
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	fmt.Fprintf(os.Stderr, "  --config\t\tPath to configuration file (default: $%s or ./%s)\n", constants.EnvConfigFile, constants.DefaultConfigFile)
	fmt.Fprintf(os.Stderr, "  --host\t\tHost to bind the HTTP server to (default: 127.0.0.1)\n")
	fmt.Fprintf(os.Stderr, "  --port\t\tPort to bind the HTTP server to (default: 8000)\n")
	fmt.Fprintf(os.Stderr, "  --log-level\t\tLog level: debug, info, warn, error (default: info)\n")
	fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
	fmt.Fprintf(os.Stderr, "  %s, %s\n", constants.EnvApplicationHost, constants.EnvApplicationPort)
	fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", constants.EnvDatabaseHost, constants.EnvDatabasePort, constants.EnvDatabaseName)
	fmt.Fprintf(os.Stderr, "  %s, %s\n", constants.EnvDatabaseUsername, constants.EnvDatabasePassword)
	fmt.Fprintf(os.Stderr, "  %s, %s\n", constants.EnvLogLevel, constants.EnvLogOutput)
	fmt.Fprintf(os.Stderr, "  %s (filter directives, e.g. info,database=debug)\n", constants.EnvLogFilter)
	fmt.Fprintf(os.Stderr, "\nExample usage:\n")
	fmt.Fprintf(os.Stderr, "  %s --config ./configuration.yaml\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s=debug %s --port 8080\n", constants.EnvLogFilter, os.Args[0])
}
