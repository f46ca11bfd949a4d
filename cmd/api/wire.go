//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 运行 `wire gen ./cmd/api` 生成wire_gen.go;main.go中的手动组装与这里的Provider一一对应

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/router"
)

// infrastructureSet 基础设施层依赖
// 包含:配置加载、存储选择、缓存
var infrastructureSet = wire.NewSet(
	config.Load,
	provideStore,
	provideRepository,
	provideCache,
	provideProbes,
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	provideBookService,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	provideLimits,
	provideBookUseCases,
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewBookHandler,
	provideHealthHandler,
	router.New,
)

// InitializeApp 初始化整个应用
// 返回配置好的Gin引擎和释放存储/缓存连接的cleanup
func InitializeApp() (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		domainSet,
		applicationSet,
		handlerSet,
	)
	return nil, nil, nil
}
