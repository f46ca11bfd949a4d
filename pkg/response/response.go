package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrorBody 统一错误响应结构
// 设计说明：
// 1. Code是业务错误码，方便客户端细分错误原因
// 2. Error是错误分类（NotFound/Conflict/InvalidState/ValidationFailure/StoreFailure）
// 3. Message是用户友好的提示信息
// 4. Detail是可选诊断信息（校验失败的字段、冲突的ISBN等）
type ErrorBody struct {
	Code    int    `json:"code" example:"40401"`
	Error   string `json:"error" example:"NotFound"`
	Message string `json:"message" example:"图书不存在"`
	Detail  any    `json:"detail,omitempty"`
}

// OK 200响应，直接返回资源本身
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204响应
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 错误响应（自动处理AppError）
// 用法：
//
//	book, err := getBookUseCase.Execute(...)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	status := appErr.HTTPStatus()

	detail := appErr.Detail
	if status >= http.StatusInternalServerError {
		// 记录详细错误到日志（包含内部错误）
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("code", appErr.Code),
			zap.Error(err),
		)
		if detail == nil && appErr.Err != nil {
			detail = appErr.Err.Error()
		}
	}

	_ = c.Error(err)
	c.JSON(status, ErrorBody{
		Code:    appErr.Code,
		Error:   appErr.Kind(),
		Message: appErr.Message,
		Detail:  detail,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string, detail any) {
	Error(c, apperrors.New(code, message).WithDetail(detail))
}

// =========================================
// 分页响应结构
// =========================================

// PageData 分页数据封装
type PageData struct {
	Books      interface{} `json:"books"`       // 数据列表
	Total      int64       `json:"total"`       // 总记录数
	Page       int         `json:"page"`        // 当前页码
	PageSize   int         `json:"page_size"`   // 每页大小
	TotalPages int         `json:"total_pages"` // 总页数
}

// NewPageData 创建分页数据
func NewPageData(books interface{}, total int64, page, pageSize, totalPages int) *PageData {
	return &PageData{
		Books:      books,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
