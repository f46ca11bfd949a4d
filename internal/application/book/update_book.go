package book

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/book"
)

// UpdateBookUseCase 图书信息更新用例
// 只更新请求中出现的字段,借阅状态不能通过更新修改
type UpdateBookUseCase struct {
	bookService book.Service
	cache       Cache
}

func NewUpdateBookUseCase(bookService book.Service, cache Cache) *UpdateBookUseCase {
	return &UpdateBookUseCase{
		bookService: bookService,
		cache:       cache,
	}
}

// UpdateBookRequest 更新请求DTO,nil表示不修改
type UpdateBookRequest struct {
	Title           *string
	Author          *string
	ISBN            *string
	PublicationYear *int
	Genre           *string
	Pages           *int
	Description     *string
}

// Patch 请求 → 领域稀疏更新
func (r UpdateBookRequest) Patch() book.Patch {
	p := book.NewPatch()
	if r.Title != nil {
		p.SetTitle(*r.Title)
	}
	if r.Author != nil {
		p.SetAuthor(*r.Author)
	}
	if r.ISBN != nil {
		p.SetISBN(*r.ISBN)
	}
	if r.PublicationYear != nil {
		p.SetPublicationYear(*r.PublicationYear)
	}
	if r.Genre != nil {
		p.SetGenre(*r.Genre)
	}
	if r.Pages != nil {
		p.SetPages(*r.Pages)
	}
	if r.Description != nil {
		p.SetDescription(*r.Description)
	}
	return p
}

// Execute 执行更新
func (uc *UpdateBookUseCase) Execute(ctx context.Context, id string, req UpdateBookRequest) (view *BookView, err error) {
	ctx, span := startSpan(ctx, "UpdateBook")
	defer func() { finish(span, "update", err) }()
	span.SetAttributes(attribute.String("book.id", id))

	updated, err := uc.bookService.UpdateBook(ctx, id, req.Patch())
	if err != nil {
		return nil, err
	}

	invalidate(ctx, uc.cache, id)
	return NewBookView(updated), nil
}
