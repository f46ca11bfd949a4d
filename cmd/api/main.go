package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/xiebiao/library/docs"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/internal/interface/rpc"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/tracing"
)

// @title        Library API
// @version      1.0
// @description  图书馆藏管理:上架、查询、借阅、归还、统计
// @BasePath     /

// main 主程序入口
// 说明:手动依赖注入,依赖关系与wire.go中的Provider一致
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	zl, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg); err != nil {
		zap.L().Fatal("服务异常退出", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化链路追踪
	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.App.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	if err := dto.RegisterValidators(); err != nil {
		return err
	}

	// 4. 依赖注入(手动组装)
	// Repository ← Service ← UseCase ← Handler
	store, closeStore, err := provideStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cache, closeCache := provideCache(cfg)
	defer closeCache()

	limits := provideLimits(cfg)
	bookService := provideBookService(provideRepository(store))
	bookHandler := handler.NewBookHandler(provideBookUseCases(bookService, cache, limits), limits)
	engine := router.New(cfg, bookHandler, provideHealthHandler(cfg), provideProbes(store))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. 启动HTTP服务和可选的gRPC健康检查服务
	var (
		healthServer *rpc.HealthServer
		grpcLis      net.Listener
	)
	if cfg.GRPC.Enabled {
		grpcLis, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("监听gRPC端口失败: %w", err)
		}
		healthServer = rpc.NewHealthServer(store.Ping)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("HTTP服务启动",
			zap.String("addr", srv.Addr),
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("cache", cfg.Cache.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if healthServer != nil {
		g.Go(func() error { return healthServer.Serve(grpcLis) })
		g.Go(func() error {
			healthServer.Watch(gctx, 10*time.Second)
			return nil
		})
	}

	// 6. 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("收到关闭信号,开始优雅关闭")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if healthServer != nil {
			healthServer.Stop()
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zap.L().Info("服务已安全关闭")
	return nil
}
