// Package observability wires OpenTelemetry tracing into the scan path.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/hivescan/pkg/errors"
)

// TracerName is the instrumentation scope of hivescan spans.
const TracerName = "github.com/ajitpratap0/hivescan"

// Tracer returns the hivescan tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span named "hivescan.<operation>".
func StartSpan(ctx context.Context, tracer trace.Tracer, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "hivescan."+operation, trace.WithAttributes(attrs...))
}

// EndSpan records the outcome of the traced operation and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.Bool("error", true),
			attribute.String("error.kind", string(errors.TypeOf(err))),
		)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
