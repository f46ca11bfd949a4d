package dto

// CreateBookRequest HTTP上架请求
// validator tag说明:
// - required: 必填字段
// - min/max: 数值范围和字符串长度校验
// - isbn: 自定义ISBN格式校验(在RegisterValidators中注册)
type CreateBookRequest struct {
	Title           string `json:"title" binding:"required,max=200" example:"Dune"`
	Author          string `json:"author" binding:"required,max=100" example:"Frank Herbert"`
	ISBN            string `json:"isbn" binding:"required,isbn" example:"978-0441013593"`
	PublicationYear int    `json:"publication_year" binding:"required,min=1000,max=2024" example:"1965"`
	Genre           string `json:"genre" binding:"required,max=50" example:"Sci-Fi"`
	Pages           int    `json:"pages" binding:"required,min=1,max=10000" example:"412"`
	Description     string `json:"description" binding:"max=1000" example:"A desert planet"`
}

// UpdateBookRequest HTTP更新请求
// 字段均可选,未出现的字段保持不变;借阅状态只能通过借阅/归还接口修改
type UpdateBookRequest struct {
	Title           *string `json:"title" binding:"omitempty,min=1,max=200"`
	Author          *string `json:"author" binding:"omitempty,min=1,max=100"`
	ISBN            *string `json:"isbn" binding:"omitempty,isbn"`
	PublicationYear *int    `json:"publication_year" binding:"omitempty,min=1000,max=2024"`
	Genre           *string `json:"genre" binding:"omitempty,min=1,max=50"`
	Pages           *int    `json:"pages" binding:"omitempty,min=1,max=10000"`
	Description     *string `json:"description" binding:"omitempty,max=1000"`
}

// BorrowBookRequest HTTP借阅请求
// days未传时使用默认借阅天数
type BorrowBookRequest struct {
	BorrowerName string `json:"borrower_name" binding:"required,max=100" example:"Alice"`
	Days         *int   `json:"days" binding:"omitempty,min=1,max=90" example:"14"`
}

// ListBooksQuery HTTP图书列表查询参数
// page_size上限由配置决定,在handler中校验
type ListBooksQuery struct {
	Page      *int   `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize  *int   `form:"page_size" binding:"omitempty,min=1" example:"10"`
	Search    string `form:"search" binding:"max=200" example:"dune"`
	Genre     string `form:"genre" binding:"max=50" example:"Sci-Fi"`
	Author    string `form:"author" binding:"max=100" example:"herbert"`
	Available *bool  `form:"available" example:"true"`
}

// SearchQuery HTTP全文检索参数
type SearchQuery struct {
	Q     string `form:"q" binding:"required,max=200" example:"dune"`
	Limit *int   `form:"limit" binding:"omitempty,min=1" example:"10"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Service string `json:"service" example:"library-api"`
	Version string `json:"version" example:"1.0.0"`
}

// WelcomeResponse 根路径响应
type WelcomeResponse struct {
	Message string `json:"message" example:"Welcome to the library API"`
	Version string `json:"version" example:"1.0.0"`
	Docs    string `json:"docs" example:"/swagger/index.html"`
}

// FieldError 校验失败的字段
type FieldError struct {
	Field string `json:"field" example:"isbn"`
	Rule  string `json:"rule" example:"isbn"`
	Param string `json:"param,omitempty"`
}
