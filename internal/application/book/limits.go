package book

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

const tracerName = "library/application/book"

// Limits 业务默认值和上限(来自配置library段)
type Limits struct {
	DefaultPageSize      int
	MaxPageSize          int
	DefaultSearchLimit   int
	MaxSearchLimit       int
	DefaultLoanDays      int
	PopularGenresLimit   int
	RecentAdditionsLimit int
}

// DefaultLimits 默认值
func DefaultLimits() Limits {
	return Limits{
		DefaultPageSize:      10,
		MaxPageSize:          100,
		DefaultSearchLimit:   10,
		MaxSearchLimit:       50,
		DefaultLoanDays:      14,
		PopularGenresLimit:   5,
		RecentAdditionsLimit: 5,
	}
}

// pageSize 未传时取默认值,超过上限时截断
func (l Limits) pageSize(requested int) int {
	return clamp(requested, l.DefaultPageSize, l.MaxPageSize)
}

func (l Limits) searchLimit(requested int) int {
	return clamp(requested, l.DefaultSearchLimit, l.MaxSearchLimit)
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// startSpan 每个用例一个Span
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, tracerName, "library."+name)
}

// finish 结束Span并按错误分类计数
func finish(span trace.Span, operation string, err error) {
	if err != nil {
		metrics.RecordBookError(operation, apperrors.GetAppError(err).Kind())
	}
	tracing.EndSpan(span, err)
}
