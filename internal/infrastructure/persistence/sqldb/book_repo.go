package sqldb

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书仓储实现(GORM)
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 处理数据库特定的错误(如ISBN重复),转换为业务错误
// 4. 借阅/归还使用条件UPDATE,并发请求只有一个能成功
type bookRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	// 1. 领域实体 → GORM模型
	model := toBookModel(b)

	// 2. 插入数据库
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate.WithDetail(b.ISBN)
		}
		return apperrors.Wrap(err, "创建图书失败")
	}

	// 3. 回填自增ID和时间戳
	b.ID = formatID(model.ID)
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt

	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id string) (*book.Book, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, book.ErrBookNotFound
	}

	var model BookModel
	if err := r.db.WithContext(ctx).First(&model, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// FindByISBN 根据ISBN查找图书
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	var model BookModel
	err := r.db.WithContext(ctx).Where("isbn = ?", isbn).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var models []BookModel
	var total int64

	query := applyFilter(r.db.WithContext(ctx).Model(&BookModel{}), params.Filter)

	// 查询总数(分页前)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	// 排序 + 分页
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	return toBookEntities(models), total, nil
}

// Update 更新Patch中出现的字段
func (r *bookRepository) Update(ctx context.Context, id string, patch book.Patch) (*book.Book, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	uid, ok := parseID(id)
	if !ok {
		return nil, book.ErrBookNotFound
	}

	fields := patch.Fields()
	fields["updated_at"] = r.now()

	err := r.db.WithContext(ctx).Model(&BookModel{}).Where("id = ?", uid).Updates(fields).Error
	if err != nil {
		if isDuplicateError(err) {
			isbn, _ := patch.ISBN()
			return nil, book.ErrISBNDuplicate.WithDetail(isbn)
		}
		return nil, apperrors.Wrap(err, "更新图书失败")
	}

	// MySQL在值未变化时RowsAffected为0,不能据此判断是否存在,回读一次
	return r.FindByID(ctx, id)
}

// Delete 删除图书(硬删除)
func (r *bookRepository) Delete(ctx context.Context, id string) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}

	result := r.db.WithContext(ctx).Delete(&BookModel{}, uid)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, "删除图书失败")
	}

	return result.RowsAffected > 0, nil
}

// MarkBorrowed 借出(条件更新)
// UPDATE books SET available = false, borrowed_by = ?, ... WHERE id = ? AND available = true
func (r *bookRepository) MarkBorrowed(ctx context.Context, id string, loan book.Loan) (*book.Book, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, book.ErrBookNotFound
	}

	result := r.db.WithContext(ctx).Model(&BookModel{}).
		Where("id = ? AND available = ?", uid, true).
		Updates(map[string]any{
			"available":     false,
			"borrowed_by":   loan.Borrower,
			"borrowed_date": loan.BorrowedAt,
			"due_date":      loan.DueAt,
			"updated_at":    loan.BorrowedAt,
		})
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "借出图书失败")
	}

	if result.RowsAffected == 0 {
		// 可能是图书不存在,或者已被借出,再查一次确定原因
		return nil, r.transitionFailure(ctx, id, book.ErrBookNotAvailable)
	}

	return r.FindByID(ctx, id)
}

// MarkReturned 归还(条件更新),清空借阅信息
func (r *bookRepository) MarkReturned(ctx context.Context, id string) (*book.Book, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, book.ErrBookNotFound
	}

	result := r.db.WithContext(ctx).Model(&BookModel{}).
		Where("id = ? AND available = ?", uid, false).
		Updates(map[string]any{
			"available":     true,
			"borrowed_by":   nil,
			"borrowed_date": nil,
			"due_date":      nil,
			"updated_at":    r.now(),
		})
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "归还图书失败")
	}

	if result.RowsAffected == 0 {
		return nil, r.transitionFailure(ctx, id, book.ErrBookNotBorrowed)
	}

	return r.FindByID(ctx, id)
}

// PopularGenres 热门类型
// SELECT genre, COUNT(*) AS total FROM books GROUP BY genre ORDER BY total DESC, genre ASC LIMIT ?
func (r *bookRepository) PopularGenres(ctx context.Context, limit int) ([]book.GenreCount, error) {
	var rows []struct {
		Genre string
		Total int64
	}

	err := r.db.WithContext(ctx).Model(&BookModel{}).
		Select("genre, COUNT(*) AS total").
		Group("genre").
		Order("total DESC").
		Order("genre ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "统计图书类型失败")
	}

	genres := make([]book.GenreCount, len(rows))
	for i, row := range rows {
		genres[i] = book.GenreCount{Genre: row.Genre, Count: row.Total}
	}
	return genres, nil
}

// RecentAdditions 最新上架
func (r *bookRepository) RecentAdditions(ctx context.Context, limit int) ([]*book.Book, error) {
	var models []BookModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询最新图书失败")
	}
	return toBookEntities(models), nil
}

// OverdueBooks 逾期图书
func (r *bookRepository) OverdueBooks(ctx context.Context, asOf time.Time) ([]*book.Book, error) {
	var models []BookModel
	err := r.db.WithContext(ctx).
		Where("available = ?", false).
		Where("borrowed_date IS NOT NULL AND due_date IS NOT NULL").
		Where("due_date < ?", asOf.UTC()).
		Order("due_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询逾期图书失败")
	}
	return toBookEntities(models), nil
}

// SearchText 全文检索
// 关系库没有统一的全文索引语法,使用LOWER + LIKE对标题/作者/简介做子串匹配
func (r *bookRepository) SearchText(ctx context.Context, query string, limit int) ([]*book.Book, error) {
	var models []BookModel
	err := applyFilter(r.db.WithContext(ctx).Model(&BookModel{}), book.Filter{Search: query}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "搜索图书失败")
	}
	return toBookEntities(models), nil
}

// transitionFailure 条件更新未命中时区分"不存在"和"状态不允许"
func (r *bookRepository) transitionFailure(ctx context.Context, id string, stateErr error) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}

// applyFilter 组合过滤条件(AND)
func applyFilter(query *gorm.DB, f book.Filter) *gorm.DB {
	if f.Search != "" {
		pattern := likePattern(f.Search)
		query = query.Where(
			"(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')",
			pattern, pattern, pattern,
		)
	}
	if f.Genre != "" {
		query = query.Where("genre = ?", f.Genre)
	}
	if f.Author != "" {
		query = query.Where("LOWER(author) LIKE ? ESCAPE '!'", likePattern(f.Author))
	}
	if f.Available != nil {
		query = query.Where("available = ?", *f.Available)
	}
	return query
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toBookModel 领域实体 → GORM模型
func toBookModel(b *book.Book) *BookModel {
	model := &BookModel{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		PublicationYear: b.PublicationYear,
		Genre:           b.Genre,
		Pages:           b.Pages,
		Description:     b.Description,
		Available:       b.Available,
	}
	if b.Loan != nil {
		borrower := b.Loan.Borrower
		borrowedAt := b.Loan.BorrowedAt
		dueAt := b.Loan.DueAt
		model.BorrowedBy = &borrower
		model.BorrowedDate = &borrowedAt
		model.DueDate = &dueAt
	}
	return model
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	b := &book.Book{
		ID:              formatID(model.ID),
		Title:           model.Title,
		Author:          model.Author,
		ISBN:            model.ISBN,
		PublicationYear: model.PublicationYear,
		Genre:           model.Genre,
		Pages:           model.Pages,
		Description:     model.Description,
		Available:       model.Available,
		CreatedAt:       model.CreatedAt.UTC(),
		UpdatedAt:       model.UpdatedAt.UTC(),
	}
	if !model.Available && model.BorrowedBy != nil && model.BorrowedDate != nil && model.DueDate != nil {
		b.Loan = &book.Loan{
			Borrower:   *model.BorrowedBy,
			BorrowedAt: model.BorrowedDate.UTC(),
			DueAt:      model.DueDate.UTC(),
		}
	}
	return b
}

func toBookEntities(models []BookModel) []*book.Book {
	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books
}
