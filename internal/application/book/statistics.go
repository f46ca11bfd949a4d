package book

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/metrics"
)

// StatisticsUseCase 统计概览用例
// 设计说明:
// 1. 统计由多个并发子查询组成,是非原子的时间点快照
// 2. 结果短时间缓存(cache.stats_ttl),任何写操作都会删除缓存
type StatisticsUseCase struct {
	bookService book.Service
	cache       Cache
	limits      Limits
}

func NewStatisticsUseCase(bookService book.Service, cache Cache, limits Limits) *StatisticsUseCase {
	return &StatisticsUseCase{
		bookService: bookService,
		cache:       cache,
		limits:      limits,
	}
}

// Execute 查询统计概览
func (uc *StatisticsUseCase) Execute(ctx context.Context) (view *StatisticsView, err error) {
	ctx, span := startSpan(ctx, "Statistics")
	defer func() { finish(span, "statistics", err) }()

	cached, err := uc.cache.GetStatistics(ctx)
	if err != nil {
		zap.L().Warn("读取统计缓存失败", zap.Error(err))
	}
	if cached != nil {
		return newStatisticsView(cached), nil
	}

	start := time.Now()
	stats, err := uc.bookService.GetStatistics(ctx, uc.limits.PopularGenresLimit, uc.limits.RecentAdditionsLimit)
	metrics.InitMetrics()
	metrics.ObserveHistogram(metrics.StatisticsDuration, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := uc.cache.SetStatistics(ctx, stats); err != nil {
		zap.L().Warn("写入统计缓存失败", zap.Error(err))
	}
	return newStatisticsView(stats), nil
}
