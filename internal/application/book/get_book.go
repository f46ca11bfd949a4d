package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
)

// GetBookUseCase 图书详情用例(Cache-Aside)
type GetBookUseCase struct {
	bookService book.Service
	cache       Cache
}

func NewGetBookUseCase(bookService book.Service, cache Cache) *GetBookUseCase {
	return &GetBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// Execute 查询图书详情
// 1. 先查缓存,命中直接返回
// 2. 未命中时先取版本号,再查存储
// 3. 版本未变才回填,避免并发写操作之后写入旧数据
func (uc *GetBookUseCase) Execute(ctx context.Context, id string) (view *BookView, err error) {
	ctx, span := startSpan(ctx, "GetBook")
	defer func() { finish(span, "get", err) }()
	span.SetAttributes(attribute.String("book.id", id))

	cached, err := uc.cache.GetBook(ctx, id)
	if err != nil {
		zap.L().Warn("读取图书缓存失败", zap.String("book_id", id), zap.Error(err))
	}
	if cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return NewBookView(cached), nil
	}

	version, verr := uc.cache.BookVersion(ctx, id)
	if verr != nil {
		zap.L().Warn("读取缓存版本失败", zap.String("book_id", id), zap.Error(verr))
	}

	b, err := uc.bookService.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if verr == nil {
		if err := uc.cache.SetBook(ctx, b, version); err != nil {
			zap.L().Warn("写入图书缓存失败", zap.String("book_id", id), zap.Error(err))
		}
	}
	return NewBookView(b), nil
}
