package observability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SpanTraceEntry is one span active when an error was wrapped
type SpanTraceEntry struct {
	Name   string
	Fields map[string]interface{}
}

func (e SpanTraceEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("name", e.Name)
	if len(e.Fields) > 0 {
		return enc.AddReflected("fields", e.Fields)
	}
	return nil
}

// SpanTrace lists the active spans, innermost first
type SpanTrace []SpanTraceEntry

func (t SpanTrace) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, e := range t {
		if err := enc.AppendObject(e); err != nil {
			return err
		}
	}
	return nil
}

func (t SpanTrace) String() string {
	var b strings.Builder
	for i, e := range t {
		fmt.Fprintf(&b, "%4d: %s\n", i, e.Name)
		for k, v := range e.Fields {
			fmt.Fprintf(&b, "           with %s=%v\n", k, v)
		}
	}
	return b.String()
}

func captureSpanTrace(d *spanData) SpanTrace {
	var trace SpanTrace
	for s := d; s != nil; s = s.parent {
		trace = append(trace, SpanTraceEntry{Name: s.name, Fields: fieldMap(s.fields)})
	}
	return trace
}

// TracedError carries the span trace captured when it was wrapped
type TracedError struct {
	err   error
	trace SpanTrace
}

func (e *TracedError) Error() string {
	return e.err.Error()
}

func (e *TracedError) Unwrap() error {
	return e.err
}

// SpanTrace returns the spans that were active when the error was wrapped
func (e *TracedError) SpanTrace() SpanTrace {
	return e.trace
}

// WrapError attaches the span trace active in ctx to err. Errors that
// already carry a trace, nil errors and errors raised outside any span are
// returned unchanged.
func WrapError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := SpanTraceOf(err); ok {
		return err
	}
	d := spanFromContext(ctx)
	if d == nil {
		return err
	}
	return &TracedError{err: err, trace: captureSpanTrace(d)}
}

// SpanTraceOf extracts the span trace from anywhere in err's chain
func SpanTraceOf(err error) (SpanTrace, bool) {
	var te *TracedError
	if errors.As(err, &te) {
		return te.SpanTrace(), true
	}
	return nil, false
}

// errorCore adds the span trace of logged errors to their record
type errorCore struct {
	next zapcore.Core
}

func newErrorCore(next zapcore.Core) zapcore.Core {
	return &errorCore{next: next}
}

func enrichErrorFields(fields []zapcore.Field) []zapcore.Field {
	var extra []zapcore.Field
	for _, f := range fields {
		if f.Type != zapcore.ErrorType {
			continue
		}
		err, ok := f.Interface.(error)
		if !ok {
			continue
		}
		trace, ok := SpanTraceOf(err)
		if !ok {
			continue
		}
		key := "span_trace"
		if f.Key != "error" {
			key = f.Key + "_span_trace"
		}
		extra = append(extra, zap.Array(key, trace))
	}
	if len(extra) == 0 {
		return fields
	}
	out := make([]zapcore.Field, 0, len(fields)+len(extra))
	out = append(out, fields...)
	return append(out, extra...)
}

func (c *errorCore) Enabled(lvl zapcore.Level) bool {
	return c.next.Enabled(lvl)
}

func (c *errorCore) With(fields []zapcore.Field) zapcore.Core {
	return &errorCore{next: c.next.With(enrichErrorFields(fields))}
}

func (c *errorCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *errorCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.next.Write(ent, enrichErrorFields(fields))
}

func (c *errorCore) Sync() error {
	return c.next.Sync()
}
