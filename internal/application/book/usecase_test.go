package book

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/sqldb"
)

// mapCache 内存缓存,记录删除次数
type mapCache struct {
	mu          sync.Mutex
	books       map[string]*book.Book
	versions    map[string]int64
	stats       *book.Statistics
	deletes     int
	failOnRead  bool
	statsWrites int
}

func newMapCache() *mapCache {
	return &mapCache{books: make(map[string]*book.Book), versions: make(map[string]int64)}
}

func (c *mapCache) GetBook(_ context.Context, id string) (*book.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOnRead {
		return nil, errors.New("cache down")
	}
	return c.books[id], nil
}

func (c *mapCache) BookVersion(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id], nil
}

func (c *mapCache) SetBook(_ context.Context, b *book.Book, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[b.ID] != version {
		return nil
	}
	cp := *b
	c.books[b.ID] = &cp
	return nil
}

func (c *mapCache) DeleteBook(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.books, id)
	c.versions[id]++
	c.deletes++
	return nil
}

func (c *mapCache) GetStatistics(context.Context) (*book.Statistics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOnRead {
		return nil, errors.New("cache down")
	}
	return c.stats, nil
}

func (c *mapCache) SetStatistics(_ context.Context, stats *book.Statistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats
	c.statsWrites++
	return nil
}

func (c *mapCache) DeleteStatistics(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = nil
	return nil
}

type fixture struct {
	svc    book.Service
	cache  *mapCache
	limits Limits
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqldb.NewDB(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return &fixture{
		svc:    book.NewService(sqldb.NewBookRepository(db)),
		cache:  newMapCache(),
		limits: DefaultLimits(),
		ctx:    context.Background(),
	}
}

func (f *fixture) publish(t *testing.T, title, isbn, genre string) *BookView {
	t.Helper()
	v, err := NewPublishBookUseCase(f.svc, f.cache).Execute(f.ctx, PublishBookRequest{
		Title:           title,
		Author:          "Frank Herbert",
		ISBN:            isbn,
		PublicationYear: 1965,
		Genre:           genre,
		Pages:           412,
	})
	require.NoError(t, err)
	return v
}

func TestPublishAndGet(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "978-0441013593", "Sci-Fi")
	assert.Equal(t, "9780441013593", created.ISBN)
	assert.True(t, created.Available)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.BorrowedBy)

	get := NewGetBookUseCase(f.svc, f.cache)
	v, err := get.Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", v.Title)

	// 第二次读取命中缓存
	f.cache.mu.Lock()
	f.cache.books[created.ID].Title = "cached"
	f.cache.mu.Unlock()
	v, err = get.Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", v.Title)

	_, err = get.Execute(f.ctx, "999")
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestGetBook_CacheFailureFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	f.cache.failOnRead = true

	v, err := NewGetBookUseCase(f.svc, f.cache).Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, v.ID)
}

// racingService 读存储之后、回填缓存之前插入一次写操作
type racingService struct {
	book.Service
	between func()
}

func (s *racingService) GetBook(ctx context.Context, id string) (*book.Book, error) {
	b, err := s.Service.GetBook(ctx, id)
	if s.between != nil {
		s.between()
		s.between = nil
	}
	return b, err
}

func TestGetBook_ConcurrentBorrowNotOverwrittenByStaleFill(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")

	svc := &racingService{Service: f.svc}
	svc.between = func() {
		_, err := NewBorrowBookUseCase(f.svc, f.cache, f.limits).Execute(f.ctx, created.ID, BorrowBookRequest{Borrower: "Alice"})
		require.NoError(t, err)
	}

	// 本次读到的是借出前的数据
	v, err := NewGetBookUseCase(svc, f.cache).Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, v.Available)

	f.cache.mu.Lock()
	_, cached := f.cache.books[created.ID]
	f.cache.mu.Unlock()
	assert.False(t, cached, "旧数据不应回填")

	v, err = NewGetBookUseCase(f.svc, f.cache).Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, v.Available)
}

func TestPublish_DuplicateISBN(t *testing.T) {
	f := newFixture(t)
	f.publish(t, "Dune", "9780441013593", "Sci-Fi")

	_, err := NewPublishBookUseCase(f.svc, f.cache).Execute(f.ctx, PublishBookRequest{
		Title: "Dune Messiah", Author: "Frank Herbert", ISBN: "978 0441013593",
		PublicationYear: 1969, Genre: "Sci-Fi", Pages: 256,
	})
	assert.ErrorIs(t, err, book.ErrISBNDuplicate)
}

func TestBorrowAndReturn(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	borrow := NewBorrowBookUseCase(f.svc, f.cache, f.limits)
	ret := NewReturnBookUseCase(f.svc, f.cache)

	// 1. 借阅7天
	v, err := borrow.Execute(f.ctx, created.ID, BorrowBookRequest{Borrower: " Alice ", Days: 7})
	require.NoError(t, err)
	assert.False(t, v.Available)
	require.NotNil(t, v.BorrowedBy)
	assert.Equal(t, "Alice", *v.BorrowedBy)
	require.NotNil(t, v.BorrowedDate)
	require.NotNil(t, v.DueDate)
	assert.True(t, v.BorrowedDate.AddDate(0, 0, 7).Equal(*v.DueDate))

	// 2. 重复借阅
	_, err = borrow.Execute(f.ctx, created.ID, BorrowBookRequest{Borrower: "Bob", Days: 7})
	assert.ErrorIs(t, err, book.ErrBookNotAvailable)

	// 3. 归还
	v, err = ret.Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, v.Available)
	assert.Nil(t, v.BorrowedBy)
	assert.Nil(t, v.DueDate)

	// 4. 重复归还
	_, err = ret.Execute(f.ctx, created.ID)
	assert.ErrorIs(t, err, book.ErrBookNotBorrowed)
}

func TestBorrow_DefaultDays(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")

	v, err := NewBorrowBookUseCase(f.svc, f.cache, f.limits).Execute(f.ctx, created.ID, BorrowBookRequest{Borrower: "Alice"})
	require.NoError(t, err)
	assert.True(t, v.BorrowedDate.AddDate(0, 0, f.limits.DefaultLoanDays).Equal(*v.DueDate))
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	get := NewGetBookUseCase(f.svc, f.cache)
	_, err := get.Execute(f.ctx, created.ID)
	require.NoError(t, err)

	title := "Dune (Deluxe)"
	v, err := NewUpdateBookUseCase(f.svc, f.cache).Execute(f.ctx, created.ID, UpdateBookRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, v.Title)
	assert.Equal(t, "Sci-Fi", v.Genre, "未传字段保持不变")

	v, err = get.Execute(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, title, v.Title)
}

func TestUpdateBookRequest_Patch(t *testing.T) {
	pages := 500
	isbn := "0-14-143958-0"
	p := UpdateBookRequest{Pages: &pages, ISBN: &isbn}.Patch()

	fields := p.Fields()
	assert.Len(t, fields, 2)
	assert.Equal(t, 500, fields[book.FieldPages])
	assert.Equal(t, "0141439580", fields[book.FieldISBN])
	assert.True(t, UpdateBookRequest{}.Patch().IsEmpty())
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	created := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	del := NewDeleteBookUseCase(f.svc, f.cache)

	require.NoError(t, del.Execute(f.ctx, created.ID))
	assert.ErrorIs(t, del.Execute(f.ctx, created.ID), book.ErrBookNotFound)

	_, err := NewGetBookUseCase(f.svc, f.cache).Execute(f.ctx, created.ID)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func TestListBooks_Pagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.publish(t, fmt.Sprintf("Book %02d", i), fmt.Sprintf("97800000000%02d", i), "Sci-Fi")
	}
	list := NewListBooksUseCase(f.svc, f.limits)

	v, err := list.Execute(f.ctx, ListBooksRequest{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.EqualValues(t, 12, v.Total)
	assert.Equal(t, 3, v.TotalPages)
	assert.Len(t, v.Books, 5)

	// 所有页的条数之和等于总数
	seen := 0
	for page := 1; page <= v.TotalPages; page++ {
		p, err := list.Execute(f.ctx, ListBooksRequest{Page: page, PageSize: 5})
		require.NoError(t, err)
		seen += len(p.Books)
	}
	assert.Equal(t, 12, seen)

	// 默认分页和上限截断
	v, err = list.Execute(f.ctx, ListBooksRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, f.limits.DefaultPageSize, v.PageSize)

	v, err = list.Execute(f.ctx, ListBooksRequest{Page: 1, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, f.limits.MaxPageSize, v.PageSize)
}

func TestListBooks_Filters(t *testing.T) {
	f := newFixture(t)
	dune := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	f.publish(t, "Emma", "0141439580", "Classic")
	_, err := NewBorrowBookUseCase(f.svc, f.cache, f.limits).Execute(f.ctx, dune.ID, BorrowBookRequest{Borrower: "Alice", Days: 3})
	require.NoError(t, err)

	available := true
	v, err := NewListBooksUseCase(f.svc, f.limits).Execute(f.ctx, ListBooksRequest{Available: &available})
	require.NoError(t, err)
	require.Len(t, v.Books, 1)
	assert.Equal(t, "Emma", v.Books[0].Title)

	v, err = NewListBooksUseCase(f.svc, f.limits).Execute(f.ctx, ListBooksRequest{Genre: "Sci-Fi", Search: "dun"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, v.Total)
}

func TestSearchBooks(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		f.publish(t, fmt.Sprintf("Dune %02d", i), fmt.Sprintf("9780000000%03d", i), "Sci-Fi")
	}
	search := NewSearchBooksUseCase(f.svc, f.limits)

	views, err := search.Execute(f.ctx, "dune", 0)
	require.NoError(t, err)
	assert.Len(t, views, f.limits.DefaultSearchLimit)

	views, err = search.Execute(f.ctx, "dune", 500)
	require.NoError(t, err)
	assert.Len(t, views, f.limits.MaxSearchLimit)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)
	dune := f.publish(t, "Dune", "9780441013593", "Sci-Fi")
	f.publish(t, "Hyperion", "9780553283686", "Sci-Fi")
	f.publish(t, "Emma", "0141439580", "Classic")
	_, err := NewBorrowBookUseCase(f.svc, f.cache, f.limits).Execute(f.ctx, dune.ID, BorrowBookRequest{Borrower: "Alice", Days: 7})
	require.NoError(t, err)

	stats := NewStatisticsUseCase(f.svc, f.cache, f.limits)
	v, err := stats.Execute(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.TotalBooks)
	assert.EqualValues(t, 2, v.AvailableBooks)
	assert.EqualValues(t, 1, v.BorrowedBooks)
	assert.EqualValues(t, 0, v.OverdueBooks)
	require.NotEmpty(t, v.PopularGenres)
	assert.Equal(t, "Sci-Fi", v.PopularGenres[0].Genre)
	assert.EqualValues(t, 2, v.PopularGenres[0].Count)
	assert.Len(t, v.RecentAdditions, 3)
	assert.Equal(t, 1, f.cache.statsWrites)

	// 第二次命中缓存
	_, err = stats.Execute(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.statsWrites)

	// 写操作使统计缓存失效
	_, err = NewReturnBookUseCase(f.svc, f.cache).Execute(f.ctx, dune.ID)
	require.NoError(t, err)
	v, err = stats.Execute(f.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v.AvailableBooks)
	assert.Equal(t, 2, f.cache.statsWrites)
}

func TestNoopCache(t *testing.T) {
	var c Cache = NoopCache{}
	b, err := c.GetBook(context.Background(), "1")
	assert.NoError(t, err)
	assert.Nil(t, b)
	s, err := c.GetStatistics(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, s)
	v, err := c.BookVersion(context.Background(), "1")
	assert.NoError(t, err)
	assert.Zero(t, v)
	assert.NoError(t, c.SetBook(context.Background(), &book.Book{ID: "1"}, v))
}

func TestClamp(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, 10, l.pageSize(0))
	assert.Equal(t, 7, l.pageSize(7))
	assert.Equal(t, 100, l.pageSize(101))
	assert.Equal(t, 10, l.searchLimit(-1))
	assert.Equal(t, 50, l.searchLimit(51))
}
