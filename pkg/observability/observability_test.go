package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/hivescan/pkg/errors"
)

func TestSpanOutcome(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer(TracerName)

	_, ok := StartSpan(context.Background(), tracer, "open", attribute.String("uri", "file:///t"))
	EndSpan(ok, nil)
	_, bad := StartSpan(context.Background(), tracer, "get_next")
	EndSpan(bad, errors.New(errors.ErrorTypeData, "bad row"))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "hivescan.open", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("uri", "file:///t"))

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Contains(t, spans[1].Attributes(), attribute.String("error.kind", "data"))
	require.Len(t, spans[1].Events(), 1, "the error is recorded as an event")
}

func TestInitTracingExports(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Writer = &out

	shutdown, err := InitTracing(context.Background(), cfg)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), Tracer(), "close")
	EndSpan(span, nil)
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), "hivescan.close")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1.5).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
