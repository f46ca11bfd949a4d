package book

import (
	"context"
	"time"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(MongoDB / GORM)
// 2. 无法解析的ID(非法ObjectID、非数字ID)统一视为ErrBookNotFound
// 3. 存储故障包装为apperrors.Wrap(StoreFailure)
type Repository interface {
	// Create 创建图书,回填ID和时间戳
	// 唯一索引冲突返回ErrISBNDuplicate
	Create(ctx context.Context, book *Book) error

	FindByID(ctx context.Context, id string) (*Book, error)

	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// List 分页查询,返回当前页和过滤后的总数
	// 排序:创建时间倒序,ID倒序兜底
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// Update 只写入Patch中出现的字段并刷新updated_at
	// 空Patch不写存储,直接返回当前实体
	Update(ctx context.Context, id string, patch Patch) (*Book, error)

	// Delete 硬删除,返回是否删除了记录
	Delete(ctx context.Context, id string) (bool, error)

	// MarkBorrowed 条件更新:仅当available=true时写入借阅信息
	// 不存在返回ErrBookNotFound,已借出返回ErrBookNotAvailable
	MarkBorrowed(ctx context.Context, id string, loan Loan) (*Book, error)

	// MarkReturned 条件更新:仅当available=false时清空借阅信息
	// 不存在返回ErrBookNotFound,未借出返回ErrBookNotBorrowed
	MarkReturned(ctx context.Context, id string) (*Book, error)

	// PopularGenres 按数量倒序(数量相同按类型名升序)
	PopularGenres(ctx context.Context, limit int) ([]GenreCount, error)

	// RecentAdditions 最新上架的limit本
	RecentAdditions(ctx context.Context, limit int) ([]*Book, error)

	// OverdueBooks 借出且到期时间早于asOf的图书
	OverdueBooks(ctx context.Context, asOf time.Time) ([]*Book, error)

	// SearchText 全文检索(标题/作者/简介)
	SearchText(ctx context.Context, query string, limit int) ([]*Book, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int // 页码(从1开始)
	PageSize int // 每页数量
	Filter   Filter
}

// Offset 分页偏移量
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Filter 列表过滤条件,零值表示不过滤,多个条件同时生效(AND)
type Filter struct {
	Search    string // 全文检索
	Genre     string // 精确匹配
	Author    string // 不区分大小写的子串匹配
	Available *bool
}

// GenreCount 类型统计
type GenreCount struct {
	Genre string
	Count int64
}
