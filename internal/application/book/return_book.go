package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/metrics"
)

// ReturnBookUseCase 归还用例
type ReturnBookUseCase struct {
	bookService book.Service
	cache       Cache
}

func NewReturnBookUseCase(bookService book.Service, cache Cache) *ReturnBookUseCase {
	return &ReturnBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// Execute 归还图书,未借出返回ErrBookNotBorrowed
func (uc *ReturnBookUseCase) Execute(ctx context.Context, id string) (view *BookView, err error) {
	ctx, span := startSpan(ctx, "ReturnBook")
	defer func() { finish(span, "return", err) }()
	span.SetAttributes(attribute.String("book.id", id))

	returned, err := uc.bookService.ReturnBook(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.InitMetrics()
	metrics.IncCounterVec(metrics.BookLoansTotal, map[string]string{"action": "return"})
	invalidate(ctx, uc.cache, id)
	return NewBookView(returned), nil
}
