package dto

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xiebiao/library/pkg/isbn"
)

var registerOnce sync.Once

// RegisterValidators 向gin的validator注册自定义规则(可重复调用)
// 1. isbn: 去除连字符和空格后为10位或13位数字
// 2. 错误中的字段名使用json/form标签名
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	var err error
	registerOnce.Do(func() {
		v.RegisterTagNameFunc(tagName)
		err = v.RegisterValidation("isbn", func(fl validator.FieldLevel) bool {
			return isbn.Valid(fl.Field().String())
		})
	})
	return err
}

// FieldErrors 把validator错误转换为响应中的字段列表,非校验错误返回nil
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
