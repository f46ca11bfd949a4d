package main

import (
	"context"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mongodb"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/infrastructure/persistence/sqldb"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/rpc"
)

// Store 图书存储及其连通性探测
type Store struct {
	Repo book.Repository
	Ping rpc.Checker
}

// provideStore 按database.driver选择存储
// mysql/postgres/sqlite走GORM,mongo走官方驱动
func provideStore(cfg *config.Config) (*Store, func(), error) {
	ctx := context.Background()

	if cfg.Database.Driver == config.DriverMongo {
		client, err := mongodb.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }

		coll, err := mongodb.NewCollection(ctx, client, cfg.Mongo)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return &Store{
			Repo: mongodb.NewBookRepository(coll),
			Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		}, cleanup, nil
	}

	db, err := sqldb.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	return &Store{
		Repo: sqldb.NewBookRepository(db),
		Ping: sqlDB.PingContext,
	}, func() { _ = sqlDB.Close() }, nil
}

func provideRepository(store *Store) book.Repository {
	return store.Repo
}

// provideCache 缓存关闭或Redis不可用时退化为NoopCache,不影响启动
func provideCache(cfg *config.Config) (appbook.Cache, func()) {
	if !cfg.Cache.Enabled {
		return appbook.NoopCache{}, func() {}
	}

	client, err := redis.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		zap.L().Warn("Redis不可用,缓存已关闭", zap.Error(err))
		return appbook.NoopCache{}, func() {}
	}

	cache := redis.NewBookCache(client, redis.BookCacheOptions{
		BookTTL:         cfg.Cache.BookTTL,
		StatsTTL:        cfg.Cache.StatsTTL,
		BreakerFailures: cfg.Cache.BreakerFailures,
		BreakerTimeout:  cfg.Cache.BreakerTimeout,
	})
	return cache, func() { _ = client.Close() }
}

func provideLimits(cfg *config.Config) appbook.Limits {
	l := cfg.Library
	return appbook.Limits{
		DefaultPageSize:      l.DefaultPageSize,
		MaxPageSize:          l.MaxPageSize,
		DefaultSearchLimit:   l.DefaultSearchLimit,
		MaxSearchLimit:       l.MaxSearchLimit,
		DefaultLoanDays:      l.DefaultLoanDays,
		PopularGenresLimit:   l.PopularGenresLimit,
		RecentAdditionsLimit: l.RecentAdditionsLimit,
	}
}

func provideBookService(repo book.Repository) book.Service {
	return book.NewService(repo)
}

func provideBookUseCases(svc book.Service, cache appbook.Cache, limits appbook.Limits) handler.BookUseCases {
	return handler.BookUseCases{
		Publish:    appbook.NewPublishBookUseCase(svc, cache),
		Get:        appbook.NewGetBookUseCase(svc, cache),
		List:       appbook.NewListBooksUseCase(svc, limits),
		Search:     appbook.NewSearchBooksUseCase(svc, limits),
		Update:     appbook.NewUpdateBookUseCase(svc, cache),
		Delete:     appbook.NewDeleteBookUseCase(svc, cache),
		Borrow:     appbook.NewBorrowBookUseCase(svc, cache, limits),
		Return:     appbook.NewReturnBookUseCase(svc, cache),
		Statistics: appbook.NewStatisticsUseCase(svc, cache, limits),
	}
}

func provideHealthHandler(cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Name, cfg.App.Version)
}

// provideProbes /live和/ready探针
func provideProbes(store *Store) healthcheck.Handler {
	probes := healthcheck.NewHandler()
	probes.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	probes.AddReadinessCheck("store", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return store.Ping(ctx)
	})
	return probes
}
