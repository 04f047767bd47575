package observability

import (
	"context"
	"fmt"
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leslieo2/dota-analytics/internal/config"
	"github.com/leslieo2/dota-analytics/internal/constants"
)

// Subscriber is a composed logging pipeline: filter, span storage, error
// context and bunyan formatting, backed by an OpenTelemetry tracer provider
// for span identifiers.
type Subscriber struct {
	name           string
	filter         *Filter
	filterFromEnv  bool
	logger         *zap.Logger
	tracerProvider *sdktrace.TracerProvider
	tracer         oteltrace.Tracer
}

type subscriberOptions struct {
	development bool
	color       bool
	tracing     config.TracingConfig
	lookupEnv   func(string) (string, bool)
}

// SubscriberOption customizes NewSubscriber
type SubscriberOption func(*subscriberOptions)

// WithDevelopment switches to human readable console output
func WithDevelopment(development bool) SubscriberOption {
	return func(o *subscriberOptions) {
		o.development = development
	}
}

// WithColor colors levels in development output
func WithColor(color bool) SubscriberOption {
	return func(o *subscriberOptions) {
		o.color = color
	}
}

// WithTracing sets the tracer provider configuration
func WithTracing(cfg config.TracingConfig) SubscriberOption {
	return func(o *subscriberOptions) {
		o.tracing = cfg
	}
}

// NewSubscriber composes a pipeline named name writing to sink. The filter
// directives come from DOTA_ANALYTICS_LOG when it holds a valid value and
// from defaultFilter otherwise.
func NewSubscriber(name, defaultFilter string, sink zapcore.WriteSyncer, opts ...SubscriberOption) (*Subscriber, error) {
	if sink == nil {
		return nil, fmt.Errorf("subscriber %q: sink cannot be nil", name)
	}

	o := subscriberOptions{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracing.ServiceName == "" {
		o.tracing.ServiceName = name
	}

	filter, fromEnv, err := resolveFilter(defaultFilter, o.lookupEnv)
	if err != nil {
		return nil, err
	}

	core := newFilterCore(
		newStorageCore(
			newErrorCore(
				newFormattingCore(name, sink, o.development, o.color),
			),
		),
		filter,
	)

	tp, err := newTracerProvider(o.tracing)
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		name:           name,
		filter:         filter,
		filterFromEnv:  fromEnv,
		logger:         zap.New(core, zap.AddCaller(), zap.ErrorOutput(sink)),
		tracerProvider: tp,
		tracer:         tp.Tracer(instrumentationName),
	}, nil
}

func resolveFilter(defaultFilter string, lookupEnv func(string) (string, bool)) (*Filter, bool, error) {
	if directives, ok := lookupEnv(constants.EnvLogFilter); ok && directives != "" {
		if f, err := ParseFilter(directives); err == nil {
			return f, true, nil
		}
	}
	f, err := ParseFilter(defaultFilter)
	if err != nil {
		return nil, false, fmt.Errorf("default filter: %w", err)
	}
	return f, false, nil
}

func (s *Subscriber) Name() string {
	return s.name
}

// Logger returns the root logger of the pipeline
func (s *Subscriber) Logger() *zap.Logger {
	return s.logger
}

func (s *Subscriber) Filter() *Filter {
	return s.filter
}

// SetLevel changes the default verbosity, e.g. after a configuration reload.
// A filter taken from DOTA_ANALYTICS_LOG takes precedence and is kept.
func (s *Subscriber) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	if s.filterFromEnv {
		s.logger.Debug("log level change ignored, filter set by environment",
			zap.String("level", lvl.String()),
			zap.String("env", constants.EnvLogFilter),
		)
		return nil
	}
	if lvl != s.filter.Level() {
		s.filter.SetLevel(lvl)
		s.logger.Info("log level changed", zap.String("level", lvl.String()))
	}
	return nil
}

// StartSpan opens a span on this pipeline without it being installed
func (s *Subscriber) StartSpan(ctx context.Context, name string, fields ...zapcore.Field) (context.Context, *Span) {
	return startSpan(ctx, s.logger, s.tracer, name, fields)
}

// FromContext returns the pipeline's logger enriched with ctx's span
func (s *Subscriber) FromContext(ctx context.Context) *zap.Logger {
	return withSpan(s.logger, ctx)
}

// Shutdown flushes pending spans and buffered records
func (s *Subscriber) Shutdown(ctx context.Context) error {
	_ = s.logger.Sync()
	return s.tracerProvider.Shutdown(ctx)
}
