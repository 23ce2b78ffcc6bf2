package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/postrack/backend/internal/infrastructure/telemetry"
)

// setupTestTracer installs an in-memory span recorder as the global tracer
// provider and restores the previous provider when the test finishes.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
	})

	return sr
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "reconciliation.apply")
	require.NotNil(t, span)
	require.NotNil(t, ctx)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "reconciliation.apply", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "terminal.issue",
		telemetry.WithAttribute(telemetry.SpanAttrSerial, "PAX-001"),
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, "10045"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("serial", "PAX-001"))
	assert.Contains(t, attrs, attribute.String("merchant_id", "10045"))
}

func TestStartSpan_WithSpanKind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "feed.fetch",
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "PaymentService", "MergeRecords")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "PaymentService.MergeRecords", spans[0].Name())
}

func TestStartSpan_Nested(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "parent")
	_, child := telemetry.StartSpan(ctx, "child")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	// Ended spans arrive child first.
	childSpan, parentSpan := spans[0], spans[1]
	assert.Equal(t, "child", childSpan.Name())
	assert.Equal(t, "parent", parentSpan.Name())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
	assert.Equal(t, parentSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetAttributes(span,
		"serial", "PAX-001",
		"event_count", 3,
		"slow", true,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("serial", "PAX-001"))
	assert.Contains(t, attrs, attribute.Int("event_count", 3))
	assert.Contains(t, attrs, attribute.Bool("slow", true))
}

func TestSetAttributes_OddKeyValues(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	// The dangling key has no value and is dropped.
	telemetry.SetAttributes(span, "k1", "v1", "k2", "v2", "dangling")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Attributes(), 2)
}

func TestSetAttributes_NonStringKey(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetAttributes(span, "k1", "v1", 123, "v2")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Attributes(), 1)
}

func TestSetAttributes_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
	})
}

func TestSetAttribute(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetAttribute(span, telemetry.SpanAttrRowCount, int64(42))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("row_count", 42))
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.RecordError(span, errors.New("serial not found in stock"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "serial not found in stock", spans[0].Status().Description)

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "exception", events[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Empty(t, spans[0].Events())
}

func TestRecordError_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("boom"))
	})
}

func TestSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.AddEvent(span, "issuance_auto_closed",
		"serial", "PAX-001",
		"merchant_id", "10045",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "issuance_auto_closed", events[0].Name)
	assert.Contains(t, events[0].Attributes, attribute.String("serial", "PAX-001"))
	assert.Contains(t, events[0].Attributes, attribute.String("merchant_id", "10045"))
}

func TestAddEvent_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.AddEvent(nil, "event")
	})
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "test")
	defer span.End()

	traceID := telemetry.GetTraceID(ctx)
	assert.Len(t, traceID, 32)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestGetSpanID(t *testing.T) {
	setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "test")
	defer span.End()

	spanID := telemetry.GetSpanID(ctx)
	assert.Len(t, spanID, 16)
}

func TestGetSpanID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}

func TestSpanFromContext(t *testing.T) {
	setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "test")
	defer span.End()

	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestContextWithSpan(t *testing.T) {
	setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	assert.Equal(t, span.SpanContext().SpanID(), telemetry.SpanFromContext(ctx).SpanContext().SpanID())
}
