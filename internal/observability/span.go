package observability

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/leslieo2/dota-analytics"

// spanFieldKey marks the zap field carrying span context through the
// pipeline; the storage layer replaces it with the span's fields.
const spanFieldKey = "__span"

type spanKey struct{}

// spanData is the key/value context stored for one logical operation
type spanData struct {
	name   string
	fields []zapcore.Field
	parent *spanData
	sc     oteltrace.SpanContext
}

func spanFromContext(ctx context.Context) *spanData {
	if ctx == nil {
		return nil
	}
	d, _ := ctx.Value(spanKey{}).(*spanData)
	return d
}

// contextFields flattens the span chain, outermost first, so that a key set
// by an inner span replaces the same key from an enclosing one.
func (d *spanData) contextFields() []zapcore.Field {
	var chain []*spanData
	for s := d; s != nil; s = s.parent {
		chain = append(chain, s)
	}

	index := make(map[string]int)
	var out []zapcore.Field
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].fields {
			if j, ok := index[f.Key]; ok {
				out[j] = f
				continue
			}
			index[f.Key] = len(out)
			out = append(out, f)
		}
	}

	out = append(out, zap.String("span", d.name))
	if d.sc.IsValid() {
		out = append(out,
			zap.String("trace_id", d.sc.TraceID().String()),
			zap.String("span_id", d.sc.SpanID().String()),
		)
	}
	return out
}

func spanField(d *spanData) zapcore.Field {
	return zapcore.Field{Key: spanFieldKey, Type: zapcore.SkipType, Interface: d}
}

func expandSpanFields(fields []zapcore.Field) []zapcore.Field {
	found := false
	for _, f := range fields {
		if f.Key == spanFieldKey {
			found = true
			break
		}
	}
	if !found {
		return fields
	}

	out := make([]zapcore.Field, 0, len(fields)+8)
	for _, f := range fields {
		if d, ok := f.Interface.(*spanData); ok && f.Key == spanFieldKey {
			out = append(out, d.contextFields()...)
			continue
		}
		out = append(out, f)
	}
	return out
}

// storageCore resolves span markers into the stored span context
type storageCore struct {
	next zapcore.Core
}

func newStorageCore(next zapcore.Core) zapcore.Core {
	return &storageCore{next: next}
}

func (c *storageCore) Enabled(lvl zapcore.Level) bool {
	return c.next.Enabled(lvl)
}

func (c *storageCore) With(fields []zapcore.Field) zapcore.Core {
	return &storageCore{next: c.next.With(expandSpanFields(fields))}
}

func (c *storageCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *storageCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.next.Write(ent, expandSpanFields(fields))
}

func (c *storageCore) Sync() error {
	return c.next.Sync()
}

// Span is a logical operation whose key/value context is attached to every
// record logged through its logger or through FromContext on its context.
type Span struct {
	name   string
	start  time.Time
	logger *zap.Logger
	otel   oteltrace.Span
	ended  atomic.Bool
}

// StartSpan opens a span on the installed pipeline
func StartSpan(ctx context.Context, name string, fields ...zapcore.Field) (context.Context, *Span) {
	return startSpan(ctx, zap.L(), otel.Tracer(instrumentationName), name, fields)
}

// StartSpanWith opens a span whose records go to logger instead of the
// installed pipeline
func StartSpanWith(ctx context.Context, logger *zap.Logger, name string, fields ...zapcore.Field) (context.Context, *Span) {
	return startSpan(ctx, logger, otel.Tracer(instrumentationName), name, fields)
}

// FromContext returns the installed logger enriched with the context's span
func FromContext(ctx context.Context) *zap.Logger {
	return withSpan(zap.L(), ctx)
}

func withSpan(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if d := spanFromContext(ctx); d != nil {
		return logger.With(spanField(d))
	}
	return logger
}

func startSpan(ctx context.Context, base *zap.Logger, tracer oteltrace.Tracer, name string, fields []zapcore.Field) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent := spanFromContext(ctx)

	ctx, otelSpan := tracer.Start(ctx, name, oteltrace.WithAttributes(attributesOf(fields)...))
	d := &spanData{
		name:   name,
		fields: fields,
		parent: parent,
		sc:     otelSpan.SpanContext(),
	}
	ctx = context.WithValue(ctx, spanKey{}, d)

	s := &Span{
		name:   name,
		start:  time.Now(),
		logger: base.With(spanField(d)),
		otel:   otelSpan,
	}
	s.logger.Info(fmt.Sprintf("[%s - START]", strings.ToUpper(name)))
	return ctx, s
}

// Logger returns a logger carrying the span context
func (s *Span) Logger() *zap.Logger {
	return s.logger
}

// RecordError marks the span as failed
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.otel.RecordError(err)
	s.otel.SetStatus(codes.Error, err.Error())
}

// End closes the span, logging its elapsed time. Only the first call has
// any effect.
func (s *Span) End() {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info(fmt.Sprintf("[%s - END]", strings.ToUpper(s.name)),
		zap.Int64("elapsed_milliseconds", time.Since(s.start).Milliseconds()),
	)
	s.otel.End()
}

func fieldMap(fields []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}

func attributesOf(fields []zapcore.Field) []attribute.KeyValue {
	if len(fields) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fieldMap(fields) {
		attrs = append(attrs, attribute.String(k, fmt.Sprint(v)))
	}
	return attrs
}
