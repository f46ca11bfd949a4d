package book

import (
	"context"
	"strings"

	"github.com/xiebiao/library/internal/domain/book"
)

// SearchBooksUseCase 全文检索用例
type SearchBooksUseCase struct {
	bookService book.Service
	limits      Limits
}

func NewSearchBooksUseCase(bookService book.Service, limits Limits) *SearchBooksUseCase {
	return &SearchBooksUseCase{
		bookService: bookService,
		limits:      limits,
	}
}

// Execute 检索标题、作者、简介,最多返回limit条
func (uc *SearchBooksUseCase) Execute(ctx context.Context, query string, limit int) (views []*BookView, err error) {
	ctx, span := startSpan(ctx, "SearchBooks")
	defer func() { finish(span, "search", err) }()

	books, err := uc.bookService.SearchBooks(ctx, strings.TrimSpace(query), uc.limits.searchLimit(limit))
	if err != nil {
		return nil, err
	}
	return newBookViews(books), nil
}
