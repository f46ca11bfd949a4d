package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/pkg/response"
)

// HealthHandler 健康检查和欢迎页
type HealthHandler struct {
	service string
	version string
}

func NewHealthHandler(service, version string) *HealthHandler {
	return &HealthHandler{service: service, version: version}
}

// Health 健康检查
// @Summary  健康检查
// @Tags     系统
// @Produce  json
// @Success  200 {object} dto.HealthResponse
// @Router   /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response.OK(c, dto.HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Version: h.version,
	})
}

// Welcome 根路径
// @Summary  欢迎页
// @Tags     系统
// @Produce  json
// @Success  200 {object} dto.WelcomeResponse
// @Router   / [get]
func (h *HealthHandler) Welcome(c *gin.Context) {
	response.OK(c, dto.WelcomeResponse{
		Message: "Welcome to the library API",
		Version: h.version,
		Docs:    "/swagger/index.html",
	})
}
