package book

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service 图书领域服务接口
// 设计说明:
// 1. 领域服务封装业务规则校验和借阅状态机
// 2. 不依赖具体的Repository实现(依赖倒置)
// 3. 默认值和上限(分页大小、借阅天数)由应用层根据配置决定
type Service interface {
	// CreateBook 上架图书
	// 业务规则:字段合法;ISBN不能重复
	CreateBook(ctx context.Context, draft *Book) (*Book, error)

	GetBook(ctx context.Context, id string) (*Book, error)

	// ListBooks 分页查询,TotalPages = ceil(Total / PageSize)
	ListBooks(ctx context.Context, params ListParams) (*Page, error)

	// UpdateBook 稀疏更新
	// 业务规则:ISBN变更时不能与其他图书重复
	UpdateBook(ctx context.Context, id string, patch Patch) (*Book, error)

	DeleteBook(ctx context.Context, id string) error

	// BorrowBook 借阅
	// 状态机:Available --borrow--> Borrowed,已借出返回ErrBookNotAvailable
	BorrowBook(ctx context.Context, id, borrower string, days int) (*Book, error)

	// ReturnBook 归还
	// 状态机:Borrowed --return--> Available,未借出返回ErrBookNotBorrowed
	ReturnBook(ctx context.Context, id string) (*Book, error)

	SearchBooks(ctx context.Context, query string, limit int) ([]*Book, error)

	// GetStatistics 统计概览
	// 子查询并发执行,结果是非原子的时间点快照
	GetStatistics(ctx context.Context, genreLimit, recentLimit int) (*Statistics, error)
}

// Page 分页结果
type Page struct {
	Books      []*Book
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// TotalPages 计算总页数,total为0时返回0
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// Statistics 统计概览
type Statistics struct {
	TotalBooks      int64
	AvailableBooks  int64
	BorrowedBooks   int64
	OverdueBooks    int64
	PopularGenres   []GenreCount
	RecentAdditions []*Book
}

// Option 领域服务选项
type Option func(*service)

// WithClock 替换时钟(测试用)
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// service 领域服务实现
type service struct {
	repo Repository
	now  func() time.Time
}

// NewService 创建图书领域服务
func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBook 上架图书
func (s *service) CreateBook(ctx context.Context, draft *Book) (*Book, error) {
	// 1. 字段校验
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// 2. 检查ISBN是否已存在
	// 检查与插入之间存在竞争窗口,由存储层唯一索引兜底(同样返回ErrISBNDuplicate)
	if err := s.ensureISBNFree(ctx, draft.ISBN, ""); err != nil {
		return nil, err
	}

	// 3. 持久化
	draft.Available = true
	draft.Loan = nil
	if err := s.repo.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// GetBook 根据ID获取图书
func (s *service) GetBook(ctx context.Context, id string) (*Book, error) {
	return s.repo.FindByID(ctx, id)
}

// ListBooks 分页查询图书列表
func (s *service) ListBooks(ctx context.Context, params ListParams) (*Page, error) {
	if params.Page < 1 || params.PageSize < 1 {
		return nil, ErrInvalidPage
	}

	books, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}

	return &Page{
		Books:      books,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: TotalPages(total, params.PageSize),
	}, nil
}

// UpdateBook 更新图书信息
func (s *service) UpdateBook(ctx context.Context, id string, patch Patch) (*Book, error) {
	// 1. 校验Patch中出现的字段
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	// 2. 图书必须存在
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. ISBN变更时检查是否被其他图书占用
	if newISBN, ok := patch.ISBN(); ok && newISBN != current.ISBN {
		if err := s.ensureISBNFree(ctx, newISBN, current.ID); err != nil {
			return nil, err
		}
	}

	if patch.IsEmpty() {
		return current, nil
	}

	// 4. 持久化
	return s.repo.Update(ctx, id, patch)
}

// DeleteBook 删除图书(任意状态都可删除)
func (s *service) DeleteBook(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrBookNotFound
	}
	return nil
}

// BorrowBook 借阅图书
func (s *service) BorrowBook(ctx context.Context, id, borrower string, days int) (*Book, error) {
	// 1. 借阅参数校验
	loan, err := NewLoan(borrower, s.now(), days)
	if err != nil {
		return nil, err
	}

	// 2. 预检查,给出明确的错误类型
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !book.Available {
		return nil, ErrBookNotAvailable
	}

	// 3. 条件更新(available=true才写入),并发借阅时只有一个成功
	return s.repo.MarkBorrowed(ctx, id, loan)
}

// ReturnBook 归还图书
func (s *service) ReturnBook(ctx context.Context, id string) (*Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.Available {
		return nil, ErrBookNotBorrowed
	}

	return s.repo.MarkReturned(ctx, id)
}

// SearchBooks 全文检索
func (s *service) SearchBooks(ctx context.Context, query string, limit int) ([]*Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	if limit < 1 {
		return nil, ErrInvalidPage
	}
	return s.repo.SearchText(ctx, query, limit)
}

// GetStatistics 统计概览
// 1. 总数/可借/借出三个计数复用List(PageSize=1),只取total
// 2. 逾期、热门类型、最新上架各一个查询
// 3. 六个子查询并发执行,任意一个失败则整体失败
func (s *service) GetStatistics(ctx context.Context, genreLimit, recentLimit int) (*Statistics, error) {
	var stats Statistics
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int64, available *bool) func() error {
		return func() error {
			_, total, err := s.repo.List(gctx, ListParams{
				Page:     1,
				PageSize: 1,
				Filter:   Filter{Available: available},
			})
			if err != nil {
				return err
			}
			*dst = total
			return nil
		}
	}
	yes, no := true, false

	g.Go(count(&stats.TotalBooks, nil))
	g.Go(count(&stats.AvailableBooks, &yes))
	g.Go(count(&stats.BorrowedBooks, &no))
	g.Go(func() error {
		overdue, err := s.repo.OverdueBooks(gctx, s.now())
		if err != nil {
			return err
		}
		stats.OverdueBooks = int64(len(overdue))
		return nil
	})
	g.Go(func() error {
		genres, err := s.repo.PopularGenres(gctx, genreLimit)
		if err != nil {
			return err
		}
		stats.PopularGenres = genres
		return nil
	})
	g.Go(func() error {
		recent, err := s.repo.RecentAdditions(gctx, recentLimit)
		if err != nil {
			return err
		}
		stats.RecentAdditions = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ensureISBNFree ISBN未被占用(或只被selfID占用)时返回nil
func (s *service) ensureISBNFree(ctx context.Context, isbn, selfID string) error {
	existing, err := s.repo.FindByISBN(ctx, isbn)
	switch {
	case err == nil:
		if existing.ID == selfID {
			return nil
		}
		return ErrISBNDuplicate.WithDetail(isbn)
	case errors.Is(err, ErrBookNotFound):
		return nil
	default:
		return err
	}
}
