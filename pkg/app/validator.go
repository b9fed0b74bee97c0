package app

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	validatorV10 "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

var (
	uniOnce sync.Once
	uni     *ut.UniversalTranslator
	uniErr  error
)

// NewTranslator registers en/zh translations on gin's validator and returns the translator set
// NewTranslator 为 gin 的校验器注册中英文翻译并返回翻译器集合，重复调用返回同一实例
func NewTranslator() (*ut.UniversalTranslator, error) {
	uniOnce.Do(func() {
		uni = ut.New(en.New(), en.New(), zh.New())

		validate, ok := binding.Validator.Engine().(*validatorV10.Validate)
		if !ok {
			return
		}

		// 错误消息使用 json 字段名
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		zhTran, _ := uni.GetTranslator("zh")
		enTran, _ := uni.GetTranslator("en")

		if uniErr = zh_translations.RegisterDefaultTranslations(validate, zhTran); uniErr != nil {
			return
		}
		uniErr = en_translations.RegisterDefaultTranslations(validate, enTran)
	})
	return uni, uniErr
}
