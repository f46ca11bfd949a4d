package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
)

// Cache 图书缓存接口(由infrastructure/persistence/redis实现)
// Get方法未命中时返回(nil, nil)
//
// 详情缓存带版本号:DeleteBook递增版本,SetBook只在版本未变时写入。
// 读路径先取版本再查存储,查询期间发生的写操作会让这次回填失效。
type Cache interface {
	GetBook(ctx context.Context, id string) (*book.Book, error)
	BookVersion(ctx context.Context, id string) (int64, error)
	SetBook(ctx context.Context, b *book.Book, version int64) error
	DeleteBook(ctx context.Context, id string) error

	GetStatistics(ctx context.Context) (*book.Statistics, error)
	SetStatistics(ctx context.Context, stats *book.Statistics) error
	DeleteStatistics(ctx context.Context) error
}

// NoopCache 关闭缓存时使用
type NoopCache struct{}

func (NoopCache) GetBook(context.Context, string) (*book.Book, error) { return nil, nil }
func (NoopCache) BookVersion(context.Context, string) (int64, error) { return 0, nil }
func (NoopCache) SetBook(context.Context, *book.Book, int64) error { return nil }
func (NoopCache) DeleteBook(context.Context, string) error { return nil }
func (NoopCache) GetStatistics(context.Context) (*book.Statistics, error) { return nil, nil }
func (NoopCache) SetStatistics(context.Context, *book.Statistics) error { return nil }
func (NoopCache) DeleteStatistics(context.Context) error { return nil }

// invalidate 写操作后删除相关缓存
// 缓存失败不影响请求结果,只记录日志,依赖TTL兜底
func invalidate(ctx context.Context, cache Cache, id string) {
	if id != "" {
		if err := cache.DeleteBook(ctx, id); err != nil {
			zap.L().Warn("删除图书缓存失败", zap.String("book_id", id), zap.Error(err))
		}
	}
	if err := cache.DeleteStatistics(ctx); err != nil {
		zap.L().Warn("删除统计缓存失败", zap.Error(err))
	}
}
