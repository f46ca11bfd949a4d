package book

import (
	"strings"

	"github.com/xiebiao/library/pkg/isbn"
)

// 可更新字段(与存储字段名一致)
const (
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldISBN            = "isbn"
	FieldPublicationYear = "publication_year"
	FieldGenre           = "genre"
	FieldPages           = "pages"
	FieldDescription     = "description"
)

// Patch 稀疏更新
// 只有设置过的字段才会被写入存储,用于区分"未传"和"传了零值"
// 可借状态不在此列,只能通过借阅/归还改变
type Patch struct {
	fields map[string]any
}

// NewPatch 创建空的Patch
func NewPatch() Patch {
	return Patch{fields: make(map[string]any)}
}

func (p *Patch) set(field string, value any) *Patch {
	if p.fields == nil {
		p.fields = make(map[string]any)
	}
	p.fields[field] = value
	return p
}

// 文本字段与NewBook一样去除首尾空白
func (p *Patch) SetTitle(v string) *Patch { return p.set(FieldTitle, strings.TrimSpace(v)) }
func (p *Patch) SetAuthor(v string) *Patch { return p.set(FieldAuthor, strings.TrimSpace(v)) }
func (p *Patch) SetISBN(v string) *Patch { return p.set(FieldISBN, isbn.Normalize(v)) }
func (p *Patch) SetPublicationYear(v int) *Patch { return p.set(FieldPublicationYear, v) }
func (p *Patch) SetGenre(v string) *Patch { return p.set(FieldGenre, strings.TrimSpace(v)) }
func (p *Patch) SetPages(v int) *Patch { return p.set(FieldPages, v) }
func (p *Patch) SetDescription(v string) *Patch { return p.set(FieldDescription, v) }

// Fields 返回字段副本(存储层据此生成UPDATE/$set)
func (p Patch) Fields() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// IsEmpty 是否没有任何字段
func (p Patch) IsEmpty() bool {
	return len(p.fields) == 0
}

// ISBN 返回Patch中的ISBN(已规范化)
func (p Patch) ISBN() (string, bool) {
	v, ok := p.fields[FieldISBN]
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// Apply 将Patch应用到实体副本上(用于校验合并后的结果)
func (p Patch) Apply(b Book) Book {
	for k, v := range p.fields {
		switch k {
		case FieldTitle:
			b.Title = v.(string)
		case FieldAuthor:
			b.Author = v.(string)
		case FieldISBN:
			b.ISBN = v.(string)
		case FieldPublicationYear:
			b.PublicationYear = v.(int)
		case FieldGenre:
			b.Genre = v.(string)
		case FieldPages:
			b.Pages = v.(int)
		case FieldDescription:
			b.Description = v.(string)
		}
	}
	return b
}

// Validate 校验Patch中出现的字段
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return nil
	}
	// 以一个合法的基准实体叠加Patch,复用实体校验规则
	base := Book{
		Title:           "-",
		Author:          "-",
		ISBN:            "0000000000",
		PublicationYear: MinPublicationYear,
		Genre:           "-",
		Pages:           MinPages,
	}
	merged := p.Apply(base)
	return merged.Validate()
}
