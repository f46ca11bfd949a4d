// Package metrics 提供基于Prometheus的指标收集
//
// 指标分三类：
//   - HTTP指标：请求总数、耗时分布、正在处理的请求数（由middleware.Metrics采集）
//   - 业务指标：图书上架/删除、借阅/归还、领域错误分类
//   - 基础设施指标：缓存命中率、熔断器状态
//
// 所有指标注册到Prometheus默认Registry，通过/metrics端点暴露。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method、path（路由模板，如/api/v1/books/:id）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数（Gauge）
	HTTPRequestsInProgress prometheus.Gauge

	// BooksCreatedTotal 图书上架总数
	BooksCreatedTotal prometheus.Counter

	// BooksDeletedTotal 图书删除总数
	BooksDeletedTotal prometheus.Counter

	// BookLoansTotal 借阅流转总数
	// 标签：action（borrow/return）
	BookLoansTotal *prometheus.CounterVec

	// BookErrorsTotal 领域错误总数
	// 标签：operation（create/borrow/...）、kind（NotFound/Conflict/...）
	BookErrorsTotal *prometheus.CounterVec

	// StatisticsDuration 统计概览组装耗时
	StatisticsDuration prometheus.Histogram

	// CacheRequestsTotal 缓存访问总数
	// 标签：cache（book/statistics）、result（hit/miss/error）
	CacheRequestsTotal *prometheus.CounterVec

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec
)

// InitMetrics 初始化并注册全部指标（可重复调用）
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP请求耗时（秒）",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "正在处理的HTTP请求数",
			},
		)

		BooksCreatedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_books_created_total",
				Help: "图书上架总数",
			},
		)

		BooksDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_books_deleted_total",
				Help: "图书删除总数",
			},
		)

		BookLoansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_book_loans_total",
				Help: "图书借阅/归还总数",
			},
			[]string{"action"},
		)

		BookErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_book_errors_total",
				Help: "图书业务错误总数",
			},
			[]string{"operation", "kind"},
		)

		StatisticsDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "library_statistics_duration_seconds",
				Help: "统计概览组装耗时（秒）",
				// 包含6个子查询，通常比单次查询慢
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		)

		CacheRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_cache_requests_total",
				Help: "缓存访问总数",
			},
			[]string{"cache", "result"},
		)

		CircuitBreakerState = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
			},
			[]string{"name"},
		)

		CircuitBreakerRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_requests_total",
				Help: "熔断器请求总数",
			},
			[]string{"name", "result"},
		)
	})
}

func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}

// RecordCache 记录一次缓存访问结果
func RecordCache(cache, result string) {
	InitMetrics()
	CacheRequestsTotal.With(prometheus.Labels{"cache": cache, "result": result}).Inc()
}

// RecordBookError 记录一次图书业务错误
func RecordBookError(operation, kind string) {
	InitMetrics()
	BookErrorsTotal.With(prometheus.Labels{"operation": operation, "kind": kind}).Inc()
}
