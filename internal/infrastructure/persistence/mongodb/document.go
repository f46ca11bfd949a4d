package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xiebiao/library/internal/domain/book"
)

// 文档字段名
const (
	fieldID           = "_id"
	fieldTitle        = "title"
	fieldAuthor       = "author"
	fieldISBN         = "isbn"
	fieldGenre        = "genre"
	fieldDescription  = "description"
	fieldAvailable    = "available"
	fieldBorrowedBy   = "borrowed_by"
	fieldBorrowedDate = "borrowed_date"
	fieldDueDate      = "due_date"
	fieldCreatedAt    = "created_at"
	fieldUpdatedAt    = "updated_at"
)

// bookDocument 图书文档
// 借阅三字段未借出时不存在(omitempty + 归还时$unset)
type bookDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Title           string             `bson:"title"`
	Author          string             `bson:"author"`
	ISBN            string             `bson:"isbn"`
	PublicationYear int                `bson:"publication_year"`
	Genre           string             `bson:"genre"`
	Pages           int                `bson:"pages"`
	Description     string             `bson:"description,omitempty"`
	Available       bool               `bson:"available"`
	BorrowedBy      *string            `bson:"borrowed_by,omitempty"`
	BorrowedDate    *time.Time         `bson:"borrowed_date,omitempty"`
	DueDate         *time.Time         `bson:"due_date,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// toDocument 领域实体 → 文档
func toDocument(b *book.Book) *bookDocument {
	doc := &bookDocument{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		PublicationYear: b.PublicationYear,
		Genre:           b.Genre,
		Pages:           b.Pages,
		Description:     b.Description,
		Available:       b.Available,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if id, err := primitive.ObjectIDFromHex(b.ID); err == nil {
		doc.ID = id
	}
	if b.Loan != nil {
		borrower := b.Loan.Borrower
		borrowedAt := b.Loan.BorrowedAt
		dueAt := b.Loan.DueAt
		doc.BorrowedBy = &borrower
		doc.BorrowedDate = &borrowedAt
		doc.DueDate = &dueAt
	}
	return doc
}

// toEntity 文档 → 领域实体
func (d *bookDocument) toEntity() *book.Book {
	b := &book.Book{
		ID:              d.ID.Hex(),
		Title:           d.Title,
		Author:          d.Author,
		ISBN:            d.ISBN,
		PublicationYear: d.PublicationYear,
		Genre:           d.Genre,
		Pages:           d.Pages,
		Description:     d.Description,
		Available:       d.Available,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	if !d.Available && d.BorrowedBy != nil && d.BorrowedDate != nil && d.DueDate != nil {
		b.Loan = &book.Loan{
			Borrower:   *d.BorrowedBy,
			BorrowedAt: d.BorrowedDate.UTC(),
			DueAt:      d.DueDate.UTC(),
		}
	}
	return b
}

func toEntities(docs []bookDocument) []*book.Book {
	books := make([]*book.Book, len(docs))
	for i := range docs {
		books[i] = docs[i].toEntity()
	}
	return books
}
