package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupRecorder 安装一个记录所有Span的全局Provider
func setupRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_ParentChild(t *testing.T) {
	sr := setupRecorder(t)

	ctx, root := StartSpan(context.Background(), "library-test", "RootOperation")
	_, child := StartSpan(ctx, "library-test", "ChildOperation")
	child.End()
	root.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)

	childSpan, rootSpan := spans[0], spans[1]
	assert.Equal(t, "ChildOperation", childSpan.Name())
	assert.Equal(t, rootSpan.SpanContext().TraceID(), childSpan.SpanContext().TraceID(), "子Span应继承TraceID")
	assert.Equal(t, rootSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
}

func TestEndSpan_RecordsError(t *testing.T) {
	sr := setupRecorder(t)

	_, span := StartSpan(context.Background(), "library-test", "BorrowBook")
	EndSpan(span, errors.New("图书已借出"))

	_, ok := StartSpan(context.Background(), "library-test", "ReturnBook")
	EndSpan(ok, nil)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "图书已借出", spans[0].Status().Description)
	assert.Len(t, spans[0].Events(), 1, "错误应记录为事件")
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestExtractTraceID(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))

	setupRecorder(t)
	ctx, span := StartSpan(context.Background(), "library-test", "GetBook")
	defer span.End()

	assert.Len(t, ExtractTraceID(ctx), 32)
	assert.Equal(t, span.SpanContext().TraceID().String(), ExtractTraceID(ctx))
}

func TestSampler(t *testing.T) {
	testCases := []struct {
		ratio    float64
		contains string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased"},
	}
	for _, tc := range testCases {
		assert.Contains(t, Sampler(tc.ratio).Description(), tc.contains)
	}
}
