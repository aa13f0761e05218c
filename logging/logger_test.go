package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestNewSlogLogger_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := NewSlogLogger(LogLevelInfo, "json", &buf, false)
	logger.Debug("hidden")
	logger.Info("agent.generate.start", "agent", "chatbot")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "agent.generate.start", rec["msg"])
	assert.Equal(t, "chatbot", rec["agent"])
	assert.NotContains(t, rec, "trace_id")
}

func TestBind_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger := Bind(NewSlogLogger(LogLevelDebug, "json", &buf, false), ctx)
	logger.Warn("tool.call.validation_failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestBind_NilAndPlainLoggers(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, Bind(nil, context.Background()))
	assert.IsType(t, NoOpLogger{}, Bind(NoOpLogger{}, context.Background()))
}
