// Package tracing wires OpenTelemetry into the GraphQL engine.
package tracing

import (
	"context"

	otelgraphql "github.com/graph-gophers/graphql-go/trace/otel"
	"github.com/graph-gophers/graphql-go/trace/tracer"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/recetario/recetario/internal/config"
)

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider according to cfg and returns the
// tracer to hand to the GraphQL schema. With the "none" exporter it
// returns a nil tracer, which leaves the engine's no-op tracer in place.
func Setup(ctx context.Context, cfg config.Tracing) (tracer.Tracer, ShutdownFunc, error) {
	if cfg.Exporter != "otlp" {
		return nil, noopShutdown, nil
	}

	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating otlp exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return NewTracer(tp), tp.Shutdown, nil
}

// NewTracer returns a GraphQL tracer that records one span per request and
// per non-trivial field on spans from tp.
func NewTracer(tp oteltrace.TracerProvider) tracer.Tracer {
	return &otelgraphql.Tracer{Tracer: tp.Tracer("recetario/graphql")}
}
