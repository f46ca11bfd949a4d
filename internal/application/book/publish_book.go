package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/pkg/metrics"
)

// PublishBookUseCase 图书上架用例
// 设计说明:
// 1. 应用层负责用例编排,协调领域服务完成业务流程
// 2. 业务规则校验(字段范围、ISBN重复)由领域服务负责
// 3. 上架后统计概览失效
type PublishBookUseCase struct {
	bookService book.Service
	cache       Cache
}

// NewPublishBookUseCase 创建上架用例
func NewPublishBookUseCase(bookService book.Service, cache Cache) *PublishBookUseCase {
	return &PublishBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// PublishBookRequest 上架请求DTO
type PublishBookRequest struct {
	Title           string
	Author          string
	ISBN            string // 允许带连字符和空格,存储前规范化
	PublicationYear int
	Genre           string
	Pages           int
	Description     string
}

// Execute 执行上架用例
func (uc *PublishBookUseCase) Execute(ctx context.Context, req PublishBookRequest) (view *BookView, err error) {
	ctx, span := startSpan(ctx, "PublishBook")
	defer func() { finish(span, "create", err) }()

	draft := book.NewBook(req.Title, req.Author, req.ISBN, req.PublicationYear, req.Genre, req.Pages, req.Description)
	created, err := uc.bookService.CreateBook(ctx, draft)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("book.id", created.ID))
	metrics.InitMetrics()
	metrics.IncCounter(metrics.BooksCreatedTotal)
	invalidate(ctx, uc.cache, "")

	return NewBookView(created), nil
}
