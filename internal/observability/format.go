package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bunyanVersion is the record format version expected by bunyan tooling
const bunyanVersion = 0

// bunyan numeric levels
const (
	bunyanDebug = 20
	bunyanInfo  = 30
	bunyanWarn  = 40
	bunyanError = 50
	bunyanFatal = 60
)

func bunyanLevel(l zapcore.Level) int {
	switch {
	case l <= zapcore.DebugLevel:
		return bunyanDebug
	case l == zapcore.InfoLevel:
		return bunyanInfo
	case l == zapcore.WarnLevel:
		return bunyanWarn
	case l == zapcore.FatalLevel:
		return bunyanFatal
	default:
		return bunyanError
	}
}

func bunyanLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt(bunyanLevel(l))
}

// bunyanEncoderConfig lays records out the way bunyan (and bunyan-compatible
// log viewers) expect them.
func bunyanEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "target",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    bunyanLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// newFormattingCore serializes records as JSON tagged with the service name,
// or as console lines in development. Level decisions are left to the filter
// layer, so the core accepts everything it is handed.
func newFormattingCore(name string, sink zapcore.WriteSyncer, development, color bool) zapcore.Core {
	var encoder zapcore.Encoder
	if development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		if color {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		encoder = zapcore.NewJSONEncoder(bunyanEncoderConfig())
	}

	all := zap.LevelEnablerFunc(func(zapcore.Level) bool { return true })
	core := zapcore.NewCore(encoder, sink, all)

	hostname, _ := os.Hostname()
	return core.With([]zapcore.Field{
		zap.Int("v", bunyanVersion),
		zap.String("name", name),
		zap.String("hostname", hostname),
		zap.Int("pid", os.Getpid()),
	})
}
