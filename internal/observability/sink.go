package observability

import (
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/leslieo2/dota-analytics/internal/constants"
)

// Sink resolves a configured output to a destination for log records.
// Anything other than stdout, stderr or discard is treated as a file path
// and rotated.
func Sink(output string) (zapcore.WriteSyncer, error) {
	switch output {
	case "":
		return nil, errors.New("log output cannot be empty")
	case constants.OutputStdout:
		return zapcore.Lock(os.Stdout), nil
	case constants.OutputStderr:
		return zapcore.Lock(os.Stderr), nil
	case constants.OutputDiscard:
		return zapcore.AddSync(io.Discard), nil
	default:
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   output,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}), nil
	}
}

// IsTerminal reports whether output is a standard stream attached to a
// terminal.
func IsTerminal(output string) bool {
	switch output {
	case constants.OutputStdout:
		return isatty.IsTerminal(os.Stdout.Fd())
	case constants.OutputStderr:
		return isatty.IsTerminal(os.Stderr.Fd())
	}
	return false
}
