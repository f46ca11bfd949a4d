package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code是业务错误码，前三位即HTTP状态码（40401 → 404）
// 2. Message是用户友好的提示信息
// 3. Detail是可选的诊断信息（如冲突的ISBN、校验失败的字段）
// 4. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按业务码比较，使WithDetail派生出的错误仍能匹配预定义错误
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPStatus 由业务码推导HTTP状态码
func (e *AppError) HTTPStatus() int {
	status := e.Code / 100
	if status < 400 || status > 599 {
		return 500
	}
	return status
}

// Kind 错误分类（返回给客户端的error字段）
func (e *AppError) Kind() string {
	switch e.Code / 100 {
	case 404:
		return KindNotFound
	case 409:
		return KindConflict
	case 400:
		return KindInvalidState
	case 422:
		return KindValidation
	}
	if e.Code == ErrCodeInternal {
		return KindInternal
	}
	return KindStoreFailure
}

// WithDetail 返回附带诊断信息的副本（预定义错误是共享的，不能直接修改）
func (e *AppError) WithDetail(detail any) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为存储故障，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeDatabaseError,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误分类
// =========================================

const (
	KindNotFound     = "NotFound"
	KindConflict     = "Conflict"
	KindInvalidState = "InvalidState"
	KindValidation   = "ValidationFailure"
	KindStoreFailure = "StoreFailure"
	KindInternal     = "InternalError"
)

// =========================================
// 错误码定义
// =========================================
// 规范：业务码 = HTTP状态码 * 100 + 序号

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeCacheError    = 50002 // 缓存错误

	// 状态错误（40000-40099）
	ErrCodeInvalidState     = 40000 // 状态不允许此操作(通用)
	ErrCodeBookNotAvailable = 40001 // 图书已借出
	ErrCodeBookNotBorrowed  = 40002 // 图书未借出

	// 资源错误（40400-40499）
	ErrCodeNotFound     = 40400 // 资源不存在(通用)
	ErrCodeBookNotFound = 40401 // 图书不存在

	// 冲突错误（40900-40999）
	ErrCodeConflict      = 40900 // 重复记录(通用)
	ErrCodeISBNDuplicate = 40901 // ISBN已存在

	// 参数错误（42200-42299）
	ErrCodeInvalidParams = 42200 // 参数错误
	ErrCodeBindError     = 42201 // 参数格式错误
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrCacheError    = New(ErrCodeCacheError, "缓存服务错误")

	ErrNotFound      = New(ErrCodeNotFound, "资源不存在")
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    ErrCodeInternal,
		Message: ErrInternal.Message,
		Detail:  err.Error(),
		Err:     err,
	}
}
