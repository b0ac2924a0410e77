package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_DefaultsToNop(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	l.Info("discarded")
}

func TestWithContext_RoundTrip(t *testing.T) {
	zl := zap.NewExample()
	ctx := WithContext(context.Background(), zl)
	assert.Same(t, zl, FromContext(ctx))
}

func TestCorrelationValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetSalesChannelID(ctx))
	assert.Empty(t, GetSubject(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithSalesChannelID(ctx, "storefront-eu")
	ctx = WithSubject(ctx, "admin@example.com")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "storefront-eu", GetSalesChannelID(ctx))
	assert.Equal(t, "admin@example.com", GetSubject(ctx))
}

func TestL_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithRequestID(ctx, "req-42")
	ctx = WithSalesChannelID(ctx, "storefront-us")

	L(ctx).Info("dispatched", zap.String("calculator", "core-gross"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "storefront-us", fields["sales_channel_id"])
	assert.Equal(t, "core-gross", fields["calculator"])
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "subject")
}

func TestL_AddsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx, span := tp.Tracer("test").Start(ctx, "dispatch")
	defer span.End()

	L(ctx).Warn("provider slow")

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}

func TestContextLogger_With(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithSubject(context.Background(), "ops")

	child := WithLogger(ctx, zap.New(core)).With(zap.String("component", "settings"))
	child.Error("upsert failed")
	child.Debug("retrying")

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "settings", entries[0].ContextMap()["component"])
	assert.Equal(t, "ops", entries[1].ContextMap()["subject"])
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("dropped")
		cl.With(zap.Int("n", 1)).Warn("dropped")
	})
	assert.NotNil(t, cl.Zap())
}
