package app

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	val "github.com/go-playground/validator/v10"
)

// ValidError 单个字段的校验错误
type ValidError struct {
	Key     string
	Message string
}

// ValidErrors 校验错误集合
type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

// Errors 返回全部错误消息
func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// ErrorsToString 以逗号拼接全部错误消息
func (v ValidErrors) ErrorsToString() string {
	return strings.Join(v.Errors(), ",")
}

// MapsToString 按字段名返回错误消息
func (v ValidErrors) MapsToString() map[string]string {
	m := make(map[string]string, len(v))
	for _, err := range v {
		if err.Key == "" {
			continue
		}
		m[err.Key] = err.Message
	}
	return m
}

// BindAndValid binds the request into v and runs the validator, translating messages with the
// translator stored by the Lang middleware
// BindAndValid 绑定请求参数并校验，使用 Lang 中间件存入的翻译器翻译错误消息
func BindAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	var errs ValidErrors
	err := c.ShouldBind(v)
	if err == nil {
		return true, nil
	}

	var trans ut.Translator
	if t, ok := c.Value("trans").(ut.Translator); ok {
		trans = t
	}

	var verrs val.ValidationErrors
	if !errors.As(err, &verrs) {
		errs = append(errs, &ValidError{Message: err.Error()})
		return false, errs
	}

	for key, value := range verrs.Translate(trans) {
		errs = append(errs, &ValidError{
			Key:     key,
			Message: value,
		})
	}

	return false, errs
}
