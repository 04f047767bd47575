package observability

import (
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

var (
	installMu sync.Mutex
	installed *Subscriber
	uninstall func()
)

// Init installs sub as the process-wide pipeline: the zap globals, the
// standard library log package, the default slog logger and the
// OpenTelemetry tracer provider all route to it. slog records keep their
// level; log package records are logged at info.
//
// There is exactly one pipeline per process. Init panics if one is already
// installed or if the standard logger cannot be redirected.
func Init(sub *Subscriber) {
	if sub == nil {
		panic("observability: cannot install a nil subscriber")
	}

	installMu.Lock()
	defer installMu.Unlock()

	if installed != nil {
		panic(fmt.Sprintf("observability: subscriber %q is already installed", installed.name))
	}

	prevSlog := slog.Default()
	prevOutput, prevFlags, prevPrefix := log.Writer(), log.Flags(), log.Prefix()

	// slog.SetDefault points the log package at the slog handler, so the
	// log redirect has to come after it.
	slog.SetDefault(slog.New(zapslog.NewHandler(sub.logger.Core(), zapslog.WithName("slog"))))
	restoreLog, err := zap.RedirectStdLogAt(sub.logger.Named("log"), zapcore.InfoLevel)
	if err != nil {
		slog.SetDefault(prevSlog)
		log.SetOutput(prevOutput)
		log.SetFlags(prevFlags)
		panic(fmt.Sprintf("observability: failed to redirect standard logger: %v", err))
	}
	restoreGlobals := zap.ReplaceGlobals(sub.logger)

	otel.SetTracerProvider(sub.tracerProvider)
	// an unreachable exporter reports on every batch
	otelLogger := sub.logger.Named("otel")
	otelErrors := &rate.Sometimes{First: 10, Interval: time.Minute}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		otelErrors.Do(func() {
			otelLogger.Warn("opentelemetry error", zap.Error(err))
		})
	}))

	installed = sub
	uninstall = func() {
		restoreGlobals()
		restoreLog()
		slog.SetDefault(prevSlog)
		log.SetOutput(prevOutput)
		log.SetFlags(prevFlags)
		log.SetPrefix(prevPrefix)
	}
}

// Installed reports whether Init has run
func Installed() bool {
	installMu.Lock()
	defer installMu.Unlock()
	return installed != nil
}

// Current returns the installed subscriber, or nil
func Current() *Subscriber {
	installMu.Lock()
	defer installMu.Unlock()
	return installed
}
