package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/tracing"
)

const (
	// HeaderRequestID 请求ID响应头
	HeaderRequestID = "X-Request-ID"
	// ContextKeyRequestID gin.Context中请求ID的键
	ContextKeyRequestID = "request_id"
)

// RequestID 请求ID中间件
// 1. 客户端传入X-Request-ID时沿用,否则生成UUID
// 2. 写入响应头和gin.Context,便于日志关联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

// GetRequestID 从Context获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// LogFields 访问日志附加字段(请求ID、trace id)
// 用于ginzap.WithContext
func LogFields(c *gin.Context) []zap.Field {
	fields := []zap.Field{zap.String("request_id", GetRequestID(c))}
	if traceID := tracing.ExtractTraceID(c.Request.Context()); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	return fields
}
