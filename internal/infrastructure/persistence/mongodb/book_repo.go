package mongodb

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书仓储实现(MongoDB)
// 设计说明:
// 1. 仓储只持有集合句柄,没有其他状态
// 2. 借阅/归还使用带状态谓词的FindOneAndUpdate,单文档原子
// 3. 非法ObjectID视为不存在
type bookRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewBookRepository 创建图书仓储
func NewBookRepository(coll *mongo.Collection) book.Repository {
	return &bookRepository{
		coll: coll,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

var newestFirst = bson.D{{Key: fieldCreatedAt, Value: -1}, {Key: fieldID, Value: -1}}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	now := r.now()
	doc := toDocument(b)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return book.ErrISBNDuplicate.WithDetail(b.ISBN)
		}
		return apperrors.Wrap(err, "创建图书失败")
	}

	b.ID = doc.ID.Hex()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id string) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrBookNotFound
	}
	return r.findOne(ctx, bson.D{{Key: fieldID, Value: oid}})
}

// FindByISBN 根据ISBN查找图书
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	return r.findOne(ctx, bson.D{{Key: fieldISBN, Value: isbn}})
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	filter := buildFilter(params.Filter)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize))

	books, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}
	return books, total, nil
}

// Update 更新Patch中出现的字段
func (r *bookRepository) Update(ctx context.Context, id string, patch book.Patch) (*book.Book, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrBookNotFound
	}

	set := bson.M{fieldUpdatedAt: r.now()}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	updated, err := r.findOneAndUpdate(ctx, bson.D{{Key: fieldID, Value: oid}}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			isbn, _ := patch.ISBN()
			return nil, book.ErrISBNDuplicate.WithDetail(isbn)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "更新图书失败")
	}
	return updated, nil
}

// Delete 删除图书
func (r *bookRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: fieldID, Value: oid}})
	if err != nil {
		return false, apperrors.Wrap(err, "删除图书失败")
	}
	return result.DeletedCount > 0, nil
}

// MarkBorrowed 借出
// findOneAndUpdate({_id, available: true}, {$set: {available: false, borrowed_by, ...}})
func (r *bookRepository) MarkBorrowed(ctx context.Context, id string, loan book.Loan) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrBookNotFound
	}

	filter := bson.D{{Key: fieldID, Value: oid}, {Key: fieldAvailable, Value: true}}
	update := bson.M{"$set": bson.M{
		fieldAvailable:    false,
		fieldBorrowedBy:   loan.Borrower,
		fieldBorrowedDate: loan.BorrowedAt,
		fieldDueDate:      loan.DueAt,
		fieldUpdatedAt:    loan.BorrowedAt,
	}}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.transitionFailure(ctx, id, book.ErrBookNotAvailable)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "借出图书失败")
	}
	return updated, nil
}

// MarkReturned 归还,$unset借阅字段
func (r *bookRepository) MarkReturned(ctx context.Context, id string) (*book.Book, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, book.ErrBookNotFound
	}

	filter := bson.D{{Key: fieldID, Value: oid}, {Key: fieldAvailable, Value: false}}
	update := bson.M{
		"$set": bson.M{
			fieldAvailable: true,
			fieldUpdatedAt: r.now(),
		},
		"$unset": bson.M{
			fieldBorrowedBy:   "",
			fieldBorrowedDate: "",
			fieldDueDate:      "",
		},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.transitionFailure(ctx, id, book.ErrBookNotBorrowed)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "归还图书失败")
	}
	return updated, nil
}

// PopularGenres 热门类型
func (r *bookRepository) PopularGenres(ctx context.Context, limit int) ([]book.GenreCount, error) {
	cursor, err := r.coll.Aggregate(ctx, popularGenresPipeline(limit))
	if err != nil {
		return nil, apperrors.Wrap(err, "统计图书类型失败")
	}

	var rows []struct {
		Genre string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperrors.Wrap(err, "统计图书类型失败")
	}

	genres := make([]book.GenreCount, len(rows))
	for i, row := range rows {
		genres[i] = book.GenreCount{Genre: row.Genre, Count: row.Count}
	}
	return genres, nil
}

// RecentAdditions 最新上架
func (r *bookRepository) RecentAdditions(ctx context.Context, limit int) ([]*book.Book, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	books, err := r.find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, "查询最新图书失败")
	}
	return books, nil
}

// OverdueBooks 逾期图书
func (r *bookRepository) OverdueBooks(ctx context.Context, asOf time.Time) ([]*book.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: fieldDueDate, Value: 1}})
	books, err := r.find(ctx, overdueFilter(asOf), opts)
	if err != nil {
		return nil, apperrors.Wrap(err, "查询逾期图书失败")
	}
	return books, nil
}

// SearchText 全文检索,按相关度排序
func (r *bookRepository) SearchText(ctx context.Context, query string, limit int) ([]*book.Book, error) {
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}}).
		SetLimit(int64(limit))

	books, err := r.find(ctx, buildFilter(book.Filter{Search: query}), opts)
	if err != nil {
		return nil, apperrors.Wrap(err, "搜索图书失败")
	}
	return books, nil
}

func (r *bookRepository) findOne(ctx context.Context, filter bson.D) (*book.Book, error) {
	var doc bookDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return doc.toEntity(), nil
}

func (r *bookRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*book.Book, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return toEntities(docs), nil
}

// findOneAndUpdate 返回更新后的文档,未匹配时返回mongo.ErrNoDocuments
func (r *bookRepository) findOneAndUpdate(ctx context.Context, filter bson.D, update bson.M) (*book.Book, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

// transitionFailure 条件更新未命中时区分"不存在"和"状态不允许"
func (r *bookRepository) transitionFailure(ctx context.Context, id string, stateErr error) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}

// =========================================
// 查询构造
// =========================================

// buildFilter 组合过滤条件(AND)
func buildFilter(f book.Filter) bson.D {
	filter := bson.D{}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.M{"$search": f.Search}})
	}
	if f.Genre != "" {
		filter = append(filter, bson.E{Key: fieldGenre, Value: f.Genre})
	}
	if f.Author != "" {
		filter = append(filter, bson.E{Key: fieldAuthor, Value: primitive.Regex{
			Pattern: regexp.QuoteMeta(f.Author),
			Options: "i",
		}})
	}
	if f.Available != nil {
		filter = append(filter, bson.E{Key: fieldAvailable, Value: *f.Available})
	}
	return filter
}

func overdueFilter(asOf time.Time) bson.D {
	return bson.D{
		{Key: fieldAvailable, Value: false},
		{Key: fieldBorrowedDate, Value: bson.M{"$exists": true}},
		{Key: fieldDueDate, Value: bson.M{"$lt": asOf}},
	}
}

// popularGenresPipeline 按类型分组计数,数量倒序,类型名升序
func popularGenresPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + fieldGenre},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
}
