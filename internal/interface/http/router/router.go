package router

import (
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// New 创建并配置Gin引擎
// 中间件顺序:请求ID → 链路追踪 → 访问日志 → panic恢复 → 指标 → CORS → gzip
// 链路追踪在访问日志之前,日志才能带上trace_id
func New(
	cfg *config.Config,
	bookHandler *handler.BookHandler,
	healthHandler *handler.HealthHandler,
	probes healthcheck.Handler,
) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/live", "/ready", "/metrics"},
		Context:    middleware.LogFields,
	}))
	r.Use(ginzap.RecoveryWithZap(zap.L(), true))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORS.AllowOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))

	r.NoRoute(func(c *gin.Context) {
		response.ErrorWithCode(c, 40400, "接口不存在", c.Request.URL.Path)
	})

	// 系统接口
	r.GET("/", healthHandler.Welcome)
	r.GET("/health", healthHandler.Health)
	r.GET("/live", gin.WrapH(probes))
	r.GET("/ready", gin.WrapH(probes))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API路由组
	v1 := r.Group("/api/v1")
	{
		books := v1.Group("/books")
		{
			books.POST("", bookHandler.CreateBook)
			books.GET("", bookHandler.ListBooks)

			// 静态路径优先于/:id匹配
			books.GET("/search/query", bookHandler.SearchBooks)
			books.GET("/statistics/overview", bookHandler.Statistics)

			books.GET("/:id", bookHandler.GetBook)
			books.PUT("/:id", bookHandler.UpdateBook)
			books.DELETE("/:id", bookHandler.DeleteBook)
			books.POST("/:id/borrow", bookHandler.BorrowBook)
			books.POST("/:id/return", bookHandler.ReturnBook)
		}
	}

	return r
}
