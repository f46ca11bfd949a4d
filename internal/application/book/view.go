package book

import (
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

// BookView 图书响应DTO
// 借阅相关字段未借出时为null
type BookView struct {
	ID              string     `json:"id" example:"1"`
	Title           string     `json:"title" example:"Dune"`
	Author          string     `json:"author" example:"Frank Herbert"`
	ISBN            string     `json:"isbn" example:"9780441013593"`
	PublicationYear int        `json:"publication_year" example:"1965"`
	Genre           string     `json:"genre" example:"Sci-Fi"`
	Pages           int        `json:"pages" example:"412"`
	Description     *string    `json:"description"`
	Available       bool       `json:"available" example:"true"`
	BorrowedBy      *string    `json:"borrowed_by"`
	BorrowedDate    *time.Time `json:"borrowed_date"`
	DueDate         *time.Time `json:"due_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookListView 分页响应DTO
type BookListView struct {
	Books      []*BookView `json:"books"`
	Total      int64       `json:"total" example:"12"`
	Page       int         `json:"page" example:"1"`
	PageSize   int         `json:"page_size" example:"10"`
	TotalPages int         `json:"total_pages" example:"2"`
}

// GenreCountView 类型统计
type GenreCountView struct {
	Genre string `json:"genre" example:"Sci-Fi"`
	Count int64  `json:"count" example:"3"`
}

// StatisticsView 统计概览响应DTO
type StatisticsView struct {
	TotalBooks      int64             `json:"total_books"`
	AvailableBooks  int64             `json:"available_books"`
	BorrowedBooks   int64             `json:"borrowed_books"`
	OverdueBooks    int64             `json:"overdue_books"`
	PopularGenres   []*GenreCountView `json:"popular_genres"`
	RecentAdditions []*BookView       `json:"recent_additions"`
}

// NewBookView 领域实体 → 响应DTO
func NewBookView(b *book.Book) *BookView {
	v := &BookView{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		PublicationYear: b.PublicationYear,
		Genre:           b.Genre,
		Pages:           b.Pages,
		Available:       b.Available,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Description != "" {
		desc := b.Description
		v.Description = &desc
	}
	if b.Loan != nil {
		borrower := b.Loan.Borrower
		borrowedAt := b.Loan.BorrowedAt
		dueAt := b.Loan.DueAt
		v.BorrowedBy = &borrower
		v.BorrowedDate = &borrowedAt
		v.DueDate = &dueAt
	}
	return v
}

func newBookViews(books []*book.Book) []*BookView {
	views := make([]*BookView, len(books))
	for i, b := range books {
		views[i] = NewBookView(b)
	}
	return views
}

func newStatisticsView(stats *book.Statistics) *StatisticsView {
	genres := make([]*GenreCountView, len(stats.PopularGenres))
	for i, g := range stats.PopularGenres {
		genres[i] = &GenreCountView{Genre: g.Genre, Count: g.Count}
	}
	return &StatisticsView{
		TotalBooks:      stats.TotalBooks,
		AvailableBooks:  stats.AvailableBooks,
		BorrowedBooks:   stats.BorrowedBooks,
		OverdueBooks:    stats.OverdueBooks,
		PopularGenres:   genres,
		RecentAdditions: newBookViews(stats.RecentAdditions),
	}
}
