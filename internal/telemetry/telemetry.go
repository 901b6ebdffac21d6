package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/textanchor/internal/anchor"
)

var tracerName = "github.com/unkn0wn-root/textanchor/internal/telemetry"

const (
	OperationCommit = "commit"
	OperationRecall = "recall"
)

type Instrumenter interface {
	Start(ctx context.Context, info OperationStart) (context.Context, OperationSpan)
	Shutdown(ctx context.Context) error
}

type OperationStart struct {
	Operation    string
	TextblockKey string
	CommentKey   string
	Raw          bool
}

type OperationResult struct {
	Err      error
	Range    anchor.OffsetRange
	Wrapped  int
	Degraded bool
	// Aborted marks outcomes that ended without a highlight but without error.
	Aborted bool
}

type OperationSpan interface {
	RecordFit(before, after anchor.OffsetRange)
	End(result OperationResult)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, info OperationStart) (context.Context, OperationSpan) {
	op := strings.TrimSpace(info.Operation)
	if op == "" {
		return ctx, noopSpan{}
	}
	ctx, span := m.tracer.Start(
		ctx,
		"textanchor."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(buildSpanAttributes(info)...),
	)
	return ctx, &operationSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type operationSpan struct {
	span trace.Span
}

func (s *operationSpan) RecordFit(before, after anchor.OffsetRange) {
	if s == nil || s.span == nil {
		return
	}
	s.span.AddEvent(
		"textanchor.fit",
		trace.WithAttributes(
			attribute.Int("textanchor.fit.before_start", before.Start),
			attribute.Int("textanchor.fit.before_end", before.End),
			attribute.Int("textanchor.fit.after_start", after.Start),
			attribute.Int("textanchor.fit.after_end", after.End),
		),
	)
}

func (s *operationSpan) End(result OperationResult) {
	if s == nil || s.span == nil {
		return
	}

	if !result.Range.IsZero() {
		s.span.SetAttributes(
			attribute.Int("textanchor.range.start", result.Range.Start),
			attribute.Int("textanchor.range.end", result.Range.End),
		)
	}
	s.span.SetAttributes(
		attribute.Int("textanchor.wrapped", result.Wrapped),
		attribute.Bool("textanchor.degraded", result.Degraded),
	)

	switch {
	case result.Err != nil:
		s.span.RecordError(result.Err)
		s.span.SetStatus(codes.Error, result.Err.Error())
	case result.Aborted:
		s.span.SetStatus(codes.Unset, "")
	default:
		s.span.SetStatus(codes.Ok, "OK")
	}
	s.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ OperationStart) (context.Context, OperationSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) RecordFit(anchor.OffsetRange, anchor.OffsetRange) {}

func (noopSpan) End(OperationResult) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func buildSpanAttributes(info OperationStart) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool("textanchor.raw", info.Raw),
	}
	if key := strings.TrimSpace(info.TextblockKey); key != "" {
		attrs = append(attrs, attribute.String("textanchor.textblock", key))
	}
	if key := strings.TrimSpace(info.CommentKey); key != "" {
		attrs = append(attrs, attribute.String("textanchor.comment", key))
	}
	return attrs
}
