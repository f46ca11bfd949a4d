package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/metrics"
)

// DeleteBookUseCase 图书下架用例
type DeleteBookUseCase struct {
	bookService book.Service
	cache       Cache
}

func NewDeleteBookUseCase(bookService book.Service, cache Cache) *DeleteBookUseCase {
	return &DeleteBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// Execute 删除图书,不存在返回ErrBookNotFound
func (uc *DeleteBookUseCase) Execute(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "DeleteBook")
	defer func() { finish(span, "delete", err) }()
	span.SetAttributes(attribute.String("book.id", id))

	if err = uc.bookService.DeleteBook(ctx, id); err != nil {
		return err
	}

	metrics.InitMetrics()
	metrics.IncCounter(metrics.BooksDeletedTotal)
	invalidate(ctx, uc.cache, id)
	return nil
}
