package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestContextHandler_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test-svc", slog.LevelInfo)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-42")

	logger.InfoContext(ctx, "hello", "k", "v")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test-svc", rec["service"])
	assert.Equal(t, "req-42", rec["request_id"])
	assert.Equal(t, traceID.String(), rec["trace_id"])
	assert.Equal(t, spanID.String(), rec["span_id"])
}

func TestContextHandler_PlainContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "test-svc", slog.LevelInfo)

	logger.With("component", "cart").InfoContext(context.Background(), "plain")

	rec := decodeLine(t, &buf)
	assert.Equal(t, "cart", rec["component"])
	assert.NotContains(t, rec, "trace_id")
	assert.NotContains(t, rec, "request_id")
}

func TestSetupTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracer(context.Background(), "test-svc", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4317", stripScheme("http://otel:4317"))
	assert.Equal(t, "otel:4317", stripScheme("https://otel:4317"))
	assert.Equal(t, "otel:4317", stripScheme("otel:4317"))
}
