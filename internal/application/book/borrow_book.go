package book

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/metrics"
)

// BorrowBookUseCase 借阅用例
type BorrowBookUseCase struct {
	bookService book.Service
	cache       Cache
	limits      Limits
}

func NewBorrowBookUseCase(bookService book.Service, cache Cache, limits Limits) *BorrowBookUseCase {
	return &BorrowBookUseCase{
		bookService: bookService,
		cache:       cache,
		limits:      limits,
	}
}

// BorrowBookRequest 借阅请求DTO
type BorrowBookRequest struct {
	Borrower string
	Days     int // 0表示使用默认借阅天数
}

// Execute 执行借阅
// 1. 补全默认借阅天数
// 2. 领域服务校验借阅人、天数和状态(已借出返回ErrBookNotAvailable)
// 3. 删除图书缓存和统计缓存
func (uc *BorrowBookUseCase) Execute(ctx context.Context, id string, req BorrowBookRequest) (view *BookView, err error) {
	ctx, span := startSpan(ctx, "BorrowBook")
	defer func() { finish(span, "borrow", err) }()

	days := req.Days
	if days == 0 {
		days = uc.limits.DefaultLoanDays
	}
	span.SetAttributes(
		attribute.String("book.id", id),
		attribute.Int("loan.days", days),
	)

	borrowed, err := uc.bookService.BorrowBook(ctx, id, strings.TrimSpace(req.Borrower), days)
	if err != nil {
		return nil, err
	}

	metrics.InitMetrics()
	metrics.IncCounterVec(metrics.BookLoansTotal, map[string]string{"action": "borrow"})
	invalidate(ctx, uc.cache, id)
	return NewBookView(borrowed), nil
}
