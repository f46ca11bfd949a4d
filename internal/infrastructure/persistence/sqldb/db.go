package sqldb

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架，按driver选择方言（mysql/postgres/sqlite）
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. log_sql开启时打印SQL
// 4. 自动迁移表结构（AutoMigrate），同时创建索引
func NewDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// 1. 选择方言
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	// 3. 连接数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			// 统一存储UTC时间，借阅到期判断依赖时间比较
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// SQLite单写者，:memory:库每个连接都是独立的数据库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	zap.L().Info("数据库连接成功", zap.String("driver", cfg.Driver))

	// 6. 自动迁移表结构
	if err := db.AutoMigrate(&BookModel{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN()), nil
	case config.DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  cfg.DSN(),
			PreferSimpleProtocol: true,
		}), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("不支持的SQL驱动: %q", cfg.Driver)
	}
}

// BookModel GORM图书模型
// 设计说明:
// 1. 这是infrastructure层的数据模型，domain/book/entity.go是领域实体，不依赖GORM
// 2. ISBN有唯一索引，是重复检查的最终保证
// 3. 借阅三字段可空，available=false时三者同时有值
// 4. 硬删除，不使用gorm.DeletedAt
type BookModel struct {
	ID              uint       `gorm:"primaryKey"`
	Title           string     `gorm:"column:title;size:200;not null;index;comment:书名"`
	Author          string     `gorm:"column:author;size:100;not null;index;comment:作者"`
	ISBN            string     `gorm:"column:isbn;size:13;not null;uniqueIndex;comment:ISBN(规范化)"`
	PublicationYear int        `gorm:"column:publication_year;not null;comment:出版年份"`
	Genre           string     `gorm:"column:genre;size:50;not null;index;comment:类型"`
	Pages           int        `gorm:"column:pages;not null;comment:页数"`
	Description     string     `gorm:"column:description;type:text;comment:简介"`
	Available       bool       `gorm:"column:available;not null;index;comment:是否可借"`
	BorrowedBy      *string    `gorm:"column:borrowed_by;size:100;comment:借阅人"`
	BorrowedDate    *time.Time `gorm:"column:borrowed_date;comment:借出时间"`
	DueDate         *time.Time `gorm:"column:due_date;index;comment:到期时间"`
	CreatedAt       time.Time  `gorm:"column:created_at;index;comment:创建时间"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}
