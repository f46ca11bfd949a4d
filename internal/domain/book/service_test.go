package book

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo 内存仓储(仅用于领域服务测试)
type memRepo struct {
	mu     sync.Mutex
	seq    int
	books  map[string]*Book
	now    func() time.Time
	listFn func(ListParams) error // 注入故障
}

func newMemRepo(now func() time.Time) *memRepo {
	return &memRepo{books: make(map[string]*Book), now: now}
}

func clone(b *Book) *Book {
	cp := *b
	if b.Loan != nil {
		loan := *b.Loan
		cp.Loan = &loan
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.books {
		if existing.ISBN == b.ISBN {
			return ErrISBNDuplicate
		}
	}
	r.seq++
	b.ID = strconv.Itoa(r.seq)
	b.CreatedAt = r.now().Add(time.Duration(r.seq) * time.Second)
	b.UpdatedAt = b.CreatedAt
	r.books[b.ID] = clone(b)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return clone(b), nil
}

func (r *memRepo) FindByISBN(_ context.Context, isbn string) (*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.ISBN == isbn {
			return clone(b), nil
		}
	}
	return nil, ErrBookNotFound
}

func (r *memRepo) sorted(match func(*Book) bool) []*Book {
	var out []*Book
	for _, b := range r.books {
		if match(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memRepo) List(_ context.Context, p ListParams) ([]*Book, int64, error) {
	if r.listFn != nil {
		if err := r.listFn(p); err != nil {
			return nil, 0, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(b *Book) bool {
		f := p.Filter
		if f.Genre != "" && b.Genre != f.Genre {
			return false
		}
		if f.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(f.Author)) {
			return false
		}
		if f.Available != nil && b.Available != *f.Available {
			return false
		}
		return true
	})
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *memRepo) Update(_ context.Context, id string, patch Patch) (*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	merged := patch.Apply(*b)
	merged.UpdatedAt = r.now()
	r.books[id] = &merged
	return clone(&merged), nil
}

func (r *memRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return false, nil
	}
	delete(r.books, id)
	return true, nil
}

func (r *memRepo) MarkBorrowed(_ context.Context, id string, loan Loan) (*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	if err := b.Borrow(loan); err != nil {
		return nil, err
	}
	return clone(b), nil
}

func (r *memRepo) MarkReturned(_ context.Context, id string) (*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	if err := b.Return(r.now()); err != nil {
		return nil, err
	}
	return clone(b), nil
}

func (r *memRepo) PopularGenres(_ context.Context, limit int) ([]GenreCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, b := range r.books {
		counts[b.Genre]++
	}
	var out []GenreCount
	for g, c := range counts {
		out = append(out, GenreCount{Genre: g, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Genre < out[j].Genre
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) RecentAdditions(_ context.Context, limit int) ([]*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted(func(*Book) bool { return true })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memRepo) OverdueBooks(_ context.Context, asOf time.Time) ([]*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(b *Book) bool { return b.IsOverdue(asOf) }), nil
}

func (r *memRepo) SearchText(_ context.Context, query string, limit int) ([]*Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	all := r.sorted(func(b *Book) bool {
		return strings.Contains(strings.ToLower(b.Title+" "+b.Author+" "+b.Description), q)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// =========================================
// 测试
// =========================================

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc   Service
	repo  *memRepo
	clock *time.Time
}

func newFixture() *fixture {
	now := baseTime
	f := &fixture{clock: &now}
	nowFn := func() time.Time { return *f.clock }
	f.repo = newMemRepo(nowFn)
	f.svc = NewService(f.repo, WithClock(nowFn))
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func dune() *Book {
	return NewBook("Dune", "Herbert", "978-0441013593", 1965, "Sci-Fi", 412, "")
}

func (f *fixture) mustCreate(t *testing.T, b *Book) *Book {
	t.Helper()
	created, err := f.svc.CreateBook(context.Background(), b)
	require.NoError(t, err)
	return created
}

func TestCreateBook(t *testing.T) {
	f := newFixture()

	created := f.mustCreate(t, dune())
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Available)
	assert.Nil(t, created.Loan)
	assert.Equal(t, "9780441013593", created.ISBN, "ISBN应规范化存储")

	// 同一ISBN(不同写法)再次上架
	_, err := f.svc.CreateBook(context.Background(), NewBook("Dune II", "Herbert", "9780441013593", 1965, "Sci-Fi", 412, ""))
	assert.ErrorIs(t, err, ErrISBNDuplicate)
}

func TestCreateBook_Validation(t *testing.T) {
	testCases := []struct {
		name string
		book *Book
		want error
	}{
		{"标题为空", NewBook("  ", "Herbert", "9780441013593", 1965, "Sci-Fi", 412, ""), ErrInvalidBook},
		{"ISBN长度错误", NewBook("Dune", "Herbert", "12345", 1965, "Sci-Fi", 412, ""), ErrInvalidISBN},
		{"ISBN含字母", NewBook("Dune", "Herbert", "97804410135X3", 1965, "Sci-Fi", 412, ""), ErrInvalidISBN},
		{"出版年过早", NewBook("Dune", "Herbert", "9780441013593", 999, "Sci-Fi", 412, ""), ErrInvalidBook},
		{"出版年过晚", NewBook("Dune", "Herbert", "9780441013593", 2025, "Sci-Fi", 412, ""), ErrInvalidBook},
		{"页数为0", NewBook("Dune", "Herbert", "9780441013593", 1965, "Sci-Fi", 0, ""), ErrInvalidBook},
		{"页数过多", NewBook("Dune", "Herbert", "9780441013593", 1965, "Sci-Fi", 10001, ""), ErrInvalidBook},
		{"简介过长", NewBook("Dune", "Herbert", "9780441013593", 1965, "Sci-Fi", 412, strings.Repeat("a", 1001)), ErrInvalidBook},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.CreateBook(context.Background(), tc.book)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetBook_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetBook(context.Background(), "404")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.mustCreate(t, dune())

	// 1. 借出
	borrowed, err := f.svc.BorrowBook(ctx, created.ID, "Alice", 7)
	require.NoError(t, err)
	assert.False(t, borrowed.Available)
	require.NotNil(t, borrowed.Loan)
	assert.Equal(t, "Alice", borrowed.Loan.Borrower)
	assert.Equal(t, baseTime, borrowed.Loan.BorrowedAt)
	assert.Equal(t, baseTime.AddDate(0, 0, 7), borrowed.Loan.DueAt)

	// 2. 再次借出
	_, err = f.svc.BorrowBook(ctx, created.ID, "Bob", 7)
	assert.ErrorIs(t, err, ErrBookNotAvailable)

	// 3. 归还
	returned, err := f.svc.ReturnBook(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, returned.Available)
	assert.Nil(t, returned.Loan)

	// 4. 再次归还
	_, err = f.svc.ReturnBook(ctx, created.ID)
	assert.ErrorIs(t, err, ErrBookNotBorrowed)

	// 5. 非法状态转换不改变状态
	current, err := f.svc.GetBook(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, current.Available)
}

func TestBorrowBook_InvalidInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.mustCreate(t, dune())

	_, err := f.svc.BorrowBook(ctx, created.ID, "Alice", 0)
	assert.ErrorIs(t, err, ErrInvalidLoanDays)
	_, err = f.svc.BorrowBook(ctx, created.ID, "Alice", 91)
	assert.ErrorIs(t, err, ErrInvalidLoanDays)
	_, err = f.svc.BorrowBook(ctx, created.ID, " ", 14)
	assert.ErrorIs(t, err, ErrInvalidBorrower)
	_, err = f.svc.BorrowBook(ctx, "missing", "Alice", 14)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUpdateBook(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.mustCreate(t, dune())
	second := f.mustCreate(t, NewBook("Emma", "Austen", "0141439580", 1815, "Classic", 474, ""))

	t.Run("部分字段更新", func(t *testing.T) {
		f.advance(time.Hour)
		patch := NewPatch()
		patch.SetTitle("Dune Messiah").SetPages(256)

		updated, err := f.svc.UpdateBook(ctx, first.ID, patch)
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", updated.Title)
		assert.Equal(t, 256, updated.Pages)
		assert.Equal(t, "Herbert", updated.Author, "未出现的字段保持不变")
		assert.True(t, updated.UpdatedAt.After(first.UpdatedAt), "updated_at应刷新")
		assert.True(t, updated.CreatedAt.Equal(first.CreatedAt))
	})

	t.Run("空Patch返回当前实体", func(t *testing.T) {
		f.advance(time.Hour)
		updated, err := f.svc.UpdateBook(ctx, second.ID, NewPatch())
		require.NoError(t, err)
		assert.Equal(t, "Emma", updated.Title)
		assert.True(t, updated.UpdatedAt.Equal(second.UpdatedAt), "空Patch不刷新updated_at")
	})

	t.Run("文本字段去除首尾空白", func(t *testing.T) {
		patch := NewPatch()
		patch.SetAuthor("  Frank Herbert ").SetGenre(" Sci-Fi\t")

		updated, err := f.svc.UpdateBook(ctx, first.ID, patch)
		require.NoError(t, err)
		assert.Equal(t, "Frank Herbert", updated.Author)
		assert.Equal(t, "Sci-Fi", updated.Genre)
	})

	t.Run("ISBN与其他图书冲突", func(t *testing.T) {
		patch := NewPatch()
		patch.SetISBN("978-0441013593")
		_, err := f.svc.UpdateBook(ctx, second.ID, patch)
		assert.ErrorIs(t, err, ErrISBNDuplicate)
	})

	t.Run("ISBN设置为自身不冲突", func(t *testing.T) {
		patch := NewPatch()
		patch.SetISBN("0-14-143958-0")
		_, err := f.svc.UpdateBook(ctx, second.ID, patch)
		assert.NoError(t, err)
	})

	t.Run("不存在", func(t *testing.T) {
		patch := NewPatch()
		patch.SetTitle("x")
		_, err := f.svc.UpdateBook(ctx, "missing", patch)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("非法字段", func(t *testing.T) {
		patch := NewPatch()
		patch.SetPublicationYear(3000)
		_, err := f.svc.UpdateBook(ctx, first.ID, patch)
		assert.ErrorIs(t, err, ErrInvalidBook)
	})
}

func TestDeleteBook(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created := f.mustCreate(t, dune())

	_, err := f.svc.BorrowBook(ctx, created.ID, "Alice", 14)
	require.NoError(t, err)

	// 借出状态也可以删除
	require.NoError(t, f.svc.DeleteBook(ctx, created.ID))
	assert.ErrorIs(t, f.svc.DeleteBook(ctx, created.ID), ErrBookNotFound)
}

func TestListBooks_Pagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		f.mustCreate(t, NewBook("Book "+strconv.Itoa(i), "Author", strconv.Itoa(1000000000+i), 2000, "Fiction", 100, ""))
	}

	seen := make(map[string]struct{})
	var items int
	for page := 1; page <= 3; page++ {
		result, err := f.svc.ListBooks(ctx, ListParams{Page: page, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(12), result.Total)
		assert.Equal(t, 3, result.TotalPages)
		for _, b := range result.Books {
			seen[b.ID] = struct{}{}
		}
		items += len(result.Books)
	}
	assert.Equal(t, 12, items, "各页条数之和等于total")
	assert.Len(t, seen, 12, "各页之间没有重复")

	_, err := f.svc.ListBooks(ctx, ListParams{Page: 0, PageSize: 5})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 3, TotalPages(12, 5))
}

func TestSearchBooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mustCreate(t, dune())
	f.mustCreate(t, NewBook("Emma", "Austen", "0141439580", 1815, "Classic", 474, "A novel about youthful hubris"))

	books, err := f.svc.SearchBooks(ctx, "hubris", 10)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Emma", books[0].Title)

	_, err = f.svc.SearchBooks(ctx, "  ", 10)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestGetStatistics(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a := f.mustCreate(t, dune())
	b := f.mustCreate(t, NewBook("Foundation", "Asimov", "0553293354", 1951, "Sci-Fi", 255, ""))
	f.mustCreate(t, NewBook("Emma", "Austen", "0141439580", 1815, "Classic", 474, ""))
	f.mustCreate(t, NewBook("Ulysses", "Joyce", "0679722769", 1922, "Modernist", 783, ""))

	_, err := f.svc.BorrowBook(ctx, a.ID, "Alice", 1)
	require.NoError(t, err)
	_, err = f.svc.BorrowBook(ctx, b.ID, "Bob", 30)
	require.NoError(t, err)

	// 两天后,a逾期,b未逾期
	*f.clock = baseTime.Add(48 * time.Hour)

	stats, err := f.svc.GetStatistics(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalBooks)
	assert.Equal(t, int64(2), stats.AvailableBooks)
	assert.Equal(t, int64(2), stats.BorrowedBooks)
	assert.Equal(t, int64(1), stats.OverdueBooks)
	assert.Equal(t, []GenreCount{{Genre: "Sci-Fi", Count: 2}, {Genre: "Classic", Count: 1}}, stats.PopularGenres)
	require.Len(t, stats.RecentAdditions, 3)
	assert.Equal(t, "Ulysses", stats.RecentAdditions[0].Title)
}

func TestGetStatistics_StoreFailure(t *testing.T) {
	f := newFixture()
	storeErr := errors.New("server selection timeout")
	f.repo.listFn = func(ListParams) error { return storeErr }

	_, err := f.svc.GetStatistics(context.Background(), 5, 5)
	assert.ErrorIs(t, err, storeErr)
}

func TestBook_IsOverdue(t *testing.T) {
	b := dune()
	assert.False(t, b.IsOverdue(baseTime), "可借状态不会逾期")

	loan, err := NewLoan("Alice", baseTime, 14)
	require.NoError(t, err)
	require.NoError(t, b.Borrow(loan))

	assert.False(t, b.IsOverdue(loan.DueAt), "到期时刻本身不算逾期")
	assert.True(t, b.IsOverdue(loan.DueAt.Add(time.Second)))
}
