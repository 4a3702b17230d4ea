// Package otelexport mirrors the in-process span tree to an OpenTelemetry
// OTLP backend (Jaeger, Grafana Tempo, Datadog, ...). It implements the
// trace.Exporter interface; keeping the OTel dependency in a sub-package
// lets the harness run without it configured.
package otelexport

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"github.com/signalnine/sqlbench/internal/trace"
)

// Config configures the OTLP exporter.
type Config struct {
	Endpoint    string // e.g. "localhost:4317"
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
	ServiceName string
}

// Exporter converts trial spans to OTel spans and exports them via OTLP.
type Exporter struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is required")
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sqlbench"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default: // "grpc"
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return &Exporter{
		provider: provider,
		tracer:   provider.Tracer("sqlbench"),
	}, nil
}

// ExportSpans replays a recorded span tree as OTel spans, preserving the
// parent/child structure and original timestamps.
func (e *Exporter) ExportSpans(ctx context.Context, spans []trace.Span) error {
	// Spans arrive ordered by start time, so parents precede children.
	ctxByID := make(map[uuid.UUID]context.Context, len(spans))
	for _, s := range spans {
		parentCtx := ctx
		if s.ParentID != uuid.Nil {
			if pc, ok := ctxByID[s.ParentID]; ok {
				parentCtx = pc
			}
		}
		spanCtx, otelSpan := e.tracer.Start(parentCtx, s.Name,
			oteltrace.WithTimestamp(s.Start),
			oteltrace.WithAttributes(spanAttributes(s)...),
		)
		ctxByID[s.ID] = spanCtx
		if s.Error != "" {
			otelSpan.SetStatus(codes.Error, s.Error)
		}
		end := s.End
		if end.IsZero() {
			end = s.Start
		}
		otelSpan.End(oteltrace.WithTimestamp(end))
	}
	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

func spanAttributes(s trace.Span) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("sqlbench.span.kind", s.Kind),
		attribute.String("sqlbench.span.id", s.ID.String()),
	}
	if len(s.Input) > 0 {
		if data, err := json.Marshal(s.Input); err == nil {
			attrs = append(attrs, attribute.String("sqlbench.input", string(data)))
		}
	}
	if len(s.Output) > 0 {
		if data, err := json.Marshal(s.Output); err == nil {
			attrs = append(attrs, attribute.String("sqlbench.output", string(data)))
		}
	}
	return attrs
}
