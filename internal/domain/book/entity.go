package book

import (
	"strings"
	"time"

	"github.com/xiebiao/library/pkg/isbn"
)

// 字段约束
const (
	MaxTitleLen       = 200
	MaxAuthorLen      = 100
	MaxGenreLen       = 50
	MaxDescriptionLen = 1000
	MaxBorrowerLen    = 100

	MinPublicationYear = 1000
	MaxPublicationYear = 2024

	MinPages = 1
	MaxPages = 10000

	MinLoanDays = 1
	MaxLoanDays = 90
)

// Book 图书实体(聚合根)
// 设计说明:
// 1. ID由存储层分配,对领域层是不透明字符串(Mongo为ObjectID十六进制,SQL为自增ID)
// 2. ISBN以规范化形式保存(去掉连字符和空格),唯一性在规范值上判断
// 3. Loan非空当且仅当Available为false(借阅信息一致性)
type Book struct {
	ID              string
	Title           string
	Author          string
	ISBN            string
	PublicationYear int
	Genre           string
	Pages           int
	Description     string
	Available       bool
	Loan            *Loan
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Loan 借阅信息
type Loan struct {
	Borrower   string
	BorrowedAt time.Time
	DueAt      time.Time
}

// NewLoan 创建借阅信息,到期时间 = 借出时间 + days天
func NewLoan(borrower string, now time.Time, days int) (Loan, error) {
	borrower = strings.TrimSpace(borrower)
	if borrower == "" || len([]rune(borrower)) > MaxBorrowerLen {
		return Loan{}, ErrInvalidBorrower
	}
	if days < MinLoanDays || days > MaxLoanDays {
		return Loan{}, ErrInvalidLoanDays
	}
	return Loan{
		Borrower:   borrower,
		BorrowedAt: now,
		DueAt:      now.AddDate(0, 0, days),
	}, nil
}

// NewBook 创建新图书(工厂方法)
// 新书总是可借状态,ID和时间戳由存储层填充
func NewBook(title, author, rawISBN string, publicationYear int, genre string, pages int, description string) *Book {
	return &Book{
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		ISBN:            isbn.Normalize(rawISBN),
		PublicationYear: publicationYear,
		Genre:           strings.TrimSpace(genre),
		Pages:           pages,
		Description:     description,
		Available:       true,
	}
}

// Validate 校验图书字段
func (b *Book) Validate() error {
	if err := validateText(b.Title, MaxTitleLen); err != nil {
		return ErrInvalidBook.WithDetail("title")
	}
	if err := validateText(b.Author, MaxAuthorLen); err != nil {
		return ErrInvalidBook.WithDetail("author")
	}
	if !isbn.Valid(b.ISBN) {
		return ErrInvalidISBN
	}
	if b.PublicationYear < MinPublicationYear || b.PublicationYear > MaxPublicationYear {
		return ErrInvalidBook.WithDetail("publication_year")
	}
	if err := validateText(b.Genre, MaxGenreLen); err != nil {
		return ErrInvalidBook.WithDetail("genre")
	}
	if b.Pages < MinPages || b.Pages > MaxPages {
		return ErrInvalidBook.WithDetail("pages")
	}
	if len([]rune(b.Description)) > MaxDescriptionLen {
		return ErrInvalidBook.WithDetail("description")
	}
	return nil
}

// IsOverdue 是否逾期
// 业务规则:必须处于借出状态且到期时间早于now
func (b *Book) IsOverdue(now time.Time) bool {
	if b.Available || b.Loan == nil {
		return false
	}
	if b.Loan.BorrowedAt.IsZero() || b.Loan.DueAt.IsZero() {
		return false
	}
	return b.Loan.DueAt.Before(now)
}

// Borrow 借出(领域行为)
// 业务规则:只有可借状态的图书可以借出
func (b *Book) Borrow(loan Loan) error {
	if !b.Available {
		return ErrBookNotAvailable
	}
	b.Available = false
	b.Loan = &loan
	b.UpdatedAt = loan.BorrowedAt
	return nil
}

// Return 归还(领域行为)
// 业务规则:只有借出状态的图书可以归还,归还后清空借阅信息
func (b *Book) Return(now time.Time) error {
	if b.Available {
		return ErrBookNotBorrowed
	}
	b.Available = true
	b.Loan = nil
	b.UpdatedAt = now
	return nil
}

func validateText(s string, max int) error {
	n := len([]rune(strings.TrimSpace(s)))
	if n == 0 || n > max {
		return ErrInvalidBook
	}
	return nil
}
