package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/internal/constants"
	"github.com/leslieo2/dota-analytics/internal/observability"
)

// Server serves the HTTP API on an already bound listener
type Server struct {
	listener   net.Listener
	addr       *net.TCPAddr
	pool       *sqlx.DB
	config     config.ApplicationSettings
	httpServer *http.Server

	logger      *zap.Logger
	metrics     *observability.Metrics
	metricsPath string
}

// Option configures a Server
type Option func(*Server)

// WithMetrics exposes Prometheus metrics on path
func WithMetrics(path string) Option {
	return func(s *Server) {
		s.metrics = observability.NewMetrics()
		s.metricsPath = path
	}
}

// WithLogger overrides the logger, which defaults to the installed one
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Listen binds a TCP listener. Port 0 lets the operating system pick a free
// port; read it back through the listener's address.
func Listen(host string, port int) (net.Listener, error) {
	address := config.ApplicationSettings{Host: host, Port: port}.Address()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", address, err)
	}
	return listener, nil
}

// New builds a server around listener and pool. It does not start serving;
// run Serve for that.
func New(listener net.Listener, pool *sqlx.DB, cfg config.ApplicationSettings, opts ...Option) (*Server, error) {
	if listener == nil {
		return nil, errors.New("listener cannot be nil")
	}
	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("listener address %s is not TCP", listener.Addr())
	}

	s := &Server{
		listener: listener,
		addr:     addr,
		pool:     pool,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.L().Named("server")
	}

	if s.metrics != nil {
		var db *sql.DB
		if pool != nil {
			db = pool.DB
		}
		if err := s.metrics.Register(db, constants.ServiceName); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Handler:        s.buildHandler(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: constants.ServerMaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(s.logger.Named("http")),
	}
	return s, nil
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+constants.PathHealthCheck, s.healthCheckHandler)
	if s.metrics != nil {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
	}
	return s.applyMiddleware(mux)
}

// Addr is the concrete bound address
func (s *Server) Addr() *net.TCPAddr {
	return s.addr
}

func (s *Server) Port() int {
	return s.addr.Port
}

// URL is the base URL clients reach the server on
func (s *Server) URL() string {
	return "http://" + s.addr.String()
}

// Pool returns the database pool handed to New
func (s *Server) Pool() *sqlx.DB {
	return s.pool
}

// Serve blocks serving requests until Shutdown is called
func (s *Server) Serve() error {
	s.logger.Info("Starting server",
		zap.String("address", s.addr.String()),
		zap.Int("port", s.addr.Port),
	)
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
