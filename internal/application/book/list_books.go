package book

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
)

// ListBooksUseCase 图书列表查询用例
// 设计说明:
// 1. 支持分页和组合过滤(检索词、类型、作者、是否可借)
// 2. 页码从1开始,每页数量按配置取默认值并截断到上限
type ListBooksUseCase struct {
	bookService book.Service
	limits      Limits
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(bookService book.Service, limits Limits) *ListBooksUseCase {
	return &ListBooksUseCase{
		bookService: bookService,
		limits:      limits,
	}
}

// ListBooksRequest 列表查询请求DTO
type ListBooksRequest struct {
	Page      int    // 页码(从1开始)
	PageSize  int    // 每页数量
	Search    string // 检索标题、作者、简介
	Genre     string
	Author    string
	Available *bool
}

// Execute 执行列表查询
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (view *BookListView, err error) {
	ctx, span := startSpan(ctx, "ListBooks")
	defer func() { finish(span, "list", err) }()

	params := book.ListParams{
		Page:     req.Page,
		PageSize: uc.limits.pageSize(req.PageSize),
		Filter: book.Filter{
			Search:    strings.TrimSpace(req.Search),
			Genre:     strings.TrimSpace(req.Genre),
			Author:    strings.TrimSpace(req.Author),
			Available: req.Available,
		},
	}
	if params.Page < 1 {
		params.Page = 1
	}
	span.SetAttributes(
		attribute.Int("page", params.Page),
		attribute.Int("page_size", params.PageSize),
	)

	page, err := uc.bookService.ListBooks(ctx, params)
	if err != nil {
		return nil, err
	}

	return &BookListView{
		Books:      newBookViews(page.Books),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}
