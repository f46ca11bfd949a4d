package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// BookUseCases 图书相关用例集合
type BookUseCases struct {
	Publish    *appbook.PublishBookUseCase
	Get        *appbook.GetBookUseCase
	List       *appbook.ListBooksUseCase
	Search     *appbook.SearchBooksUseCase
	Update     *appbook.UpdateBookUseCase
	Delete     *appbook.DeleteBookUseCase
	Borrow     *appbook.BorrowBookUseCase
	Return     *appbook.ReturnBookUseCase
	Statistics *appbook.StatisticsUseCase
}

// BookHandler 图书HTTP处理器
type BookHandler struct {
	uc     BookUseCases
	limits appbook.Limits
}

// NewBookHandler 创建图书处理器
func NewBookHandler(uc BookUseCases, limits appbook.Limits) *BookHandler {
	return &BookHandler{
		uc:     uc,
		limits: limits,
	}
}

// CreateBook 上架图书
// @Summary      上架图书
// @Description  新增一本图书,ISBN允许带连字符,存储时规范化
// @Tags         图书
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      201 {object} appbook.BookView
// @Failure      409 {object} response.ErrorBody "ISBN已存在"
// @Failure      422 {object} response.ErrorBody "参数错误"
// @Router       /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	// 1. 参数绑定与验证
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	// 2. 调用应用层用例
	result, err := h.uc.Publish.Execute(c.Request.Context(), appbook.PublishBookRequest{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Genre:           req.Genre,
		Pages:           req.Pages,
		Description:     req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  分页查询,支持检索词、类型、作者、是否可借组合过滤
// @Tags         图书
// @Produce      json
// @Param        page      query int    false "页码" minimum(1)
// @Param        page_size query int    false "每页数量" minimum(1)
// @Param        search    query string false "检索标题、作者、简介"
// @Param        genre     query string false "类型(精确匹配)"
// @Param        author    query string false "作者(不区分大小写的子串匹配)"
// @Param        available query bool   false "是否可借"
// @Success      200 {object} appbook.BookListView
// @Failure      422 {object} response.ErrorBody "参数错误"
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var q dto.ListBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	req := appbook.ListBooksRequest{
		Search:    q.Search,
		Genre:     q.Genre,
		Author:    q.Author,
		Available: q.Available,
	}
	if q.Page != nil {
		req.Page = *q.Page
	}
	if q.PageSize != nil {
		if *q.PageSize > h.limits.MaxPageSize {
			response.Error(c, book.ErrInvalidPage.WithDetail(fmt.Sprintf("page_size must be <= %d", h.limits.MaxPageSize)))
			return
		}
		req.PageSize = *q.PageSize
	}

	result, err := h.uc.List.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path string true "图书ID"
// @Success      200 {object} appbook.BookView
// @Failure      404 {object} response.ErrorBody "图书不存在"
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	result, err := h.uc.Get.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// UpdateBook 更新图书信息
// @Summary      更新图书
// @Description  只更新请求中出现的字段
// @Tags         图书
// @Accept       json
// @Produce      json
// @Param        id      path string                true "图书ID"
// @Param        request body dto.UpdateBookRequest true "需要修改的字段"
// @Success      200 {object} appbook.BookView
// @Failure      404 {object} response.ErrorBody "图书不存在"
// @Failure      409 {object} response.ErrorBody "ISBN已存在"
// @Failure      422 {object} response.ErrorBody "参数错误"
// @Router       /api/v1/books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	result, err := h.uc.Update.Execute(c.Request.Context(), c.Param("id"), appbook.UpdateBookRequest{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Genre:           req.Genre,
		Pages:           req.Pages,
		Description:     req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteBook 删除图书
// @Summary      删除图书
// @Tags         图书
// @Param        id path string true "图书ID"
// @Success      204
// @Failure      404 {object} response.ErrorBody "图书不存在"
// @Router       /api/v1/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	if err := h.uc.Delete.Execute(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BorrowBook 借阅图书
// @Summary      借阅图书
// @Tags         借阅
// @Accept       json
// @Produce      json
// @Param        id      path string                true "图书ID"
// @Param        request body dto.BorrowBookRequest true "借阅信息"
// @Success      200 {object} appbook.BookView
// @Failure      400 {object} response.ErrorBody "图书已借出"
// @Failure      404 {object} response.ErrorBody "图书不存在"
// @Failure      422 {object} response.ErrorBody "参数错误"
// @Router       /api/v1/books/{id}/borrow [post]
func (h *BookHandler) BorrowBook(c *gin.Context) {
	var req dto.BorrowBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}

	borrow := appbook.BorrowBookRequest{Borrower: req.BorrowerName}
	if req.Days != nil {
		borrow.Days = *req.Days
	}

	result, err := h.uc.Borrow.Execute(c.Request.Context(), c.Param("id"), borrow)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// ReturnBook 归还图书
// @Summary      归还图书
// @Tags         借阅
// @Produce      json
// @Param        id path string true "图书ID"
// @Success      200 {object} appbook.BookView
// @Failure      400 {object} response.ErrorBody "图书未借出"
// @Failure      404 {object} response.ErrorBody "图书不存在"
// @Router       /api/v1/books/{id}/return [post]
func (h *BookHandler) ReturnBook(c *gin.Context) {
	result, err := h.uc.Return.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// SearchBooks 全文检索
// @Summary      全文检索
// @Tags         图书
// @Produce      json
// @Param        q     query string true  "检索词"
// @Param        limit query int    false "最多返回条数" minimum(1)
// @Success      200 {array}  appbook.BookView
// @Failure      422 {object} response.ErrorBody "参数错误"
// @Router       /api/v1/books/search/query [get]
func (h *BookHandler) SearchBooks(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err))
		return
	}

	limit := 0
	if q.Limit != nil {
		if *q.Limit > h.limits.MaxSearchLimit {
			response.Error(c, book.ErrInvalidPage.WithDetail(fmt.Sprintf("limit must be <= %d", h.limits.MaxSearchLimit)))
			return
		}
		limit = *q.Limit
	}

	result, err := h.uc.Search.Execute(c.Request.Context(), q.Q, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Statistics 统计概览
// @Summary      统计概览
// @Description  总数、可借、借出、逾期、热门类型、最新上架
// @Tags         统计
// @Produce      json
// @Success      200 {object} appbook.StatisticsView
// @Router       /api/v1/books/statistics/overview [get]
func (h *BookHandler) Statistics(c *gin.Context) {
	result, err := h.uc.Statistics.Execute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// bindError 绑定失败 → 422
// 校验规则失败时detail为字段列表,JSON格式错误时detail为原始错误信息
func bindError(err error) error {
	if fields := dto.FieldErrors(err); fields != nil {
		return apperrors.ErrInvalidParams.WithDetail(fields)
	}
	return apperrors.ErrBindError.WithDetail(err.Error())
}
