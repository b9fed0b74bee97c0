package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"

	"github.com/haierkeys/lww-note-sync/pkg/code"
)

// LangWithTranslator 根据 lang 参数或请求头选择校验错误的翻译器
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		}

		lang = strings.ToLower(strings.ReplaceAll(lang, "-", "_"))

		// zh_cn / zh_tw 共用 zh 翻译
		trans, found := uni.GetTranslator(strings.SplitN(lang, "_", 2)[0])
		if !found {
			trans, _ = uni.GetTranslator(code.FALLBACK_LNG)
		}
		c.Set("trans", trans)

		if lang != "" {
			_ = code.SetGlobalDefaultLang(lang)
		}

		c.Next()
	}
}
