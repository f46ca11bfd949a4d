package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrISBNDuplicate ISBN已存在
	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "ISBN号已存在")

	// ErrBookNotAvailable 图书已借出,不能再次借阅
	ErrBookNotAvailable = apperrors.New(apperrors.ErrCodeBookNotAvailable, "图书已借出")

	// ErrBookNotBorrowed 图书未借出,不能归还
	ErrBookNotBorrowed = apperrors.New(apperrors.ErrCodeBookNotBorrowed, "图书未借出")

	ErrInvalidBook     = apperrors.New(apperrors.ErrCodeInvalidParams, "图书信息不合法")
	ErrInvalidISBN     = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN格式不正确")
	ErrInvalidBorrower = apperrors.New(apperrors.ErrCodeInvalidParams, "借阅人姓名不合法")
	ErrInvalidLoanDays = apperrors.New(apperrors.ErrCodeInvalidParams, "借阅天数必须在1-90之间")
	ErrInvalidPage     = apperrors.New(apperrors.ErrCodeInvalidParams, "分页参数不合法")
	ErrInvalidQuery    = apperrors.New(apperrors.ErrCodeInvalidParams, "搜索关键词不能为空")
)
