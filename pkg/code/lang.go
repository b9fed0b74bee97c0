package code

import (
	"errors"
	"sync/atomic"
)

// lang stores the English and Chinese text of a message
// lang 存储消息的英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

// Default language is English // 默认语言为英文
var lng atomic.Value

func init() {
	lng.Store(FALLBACK_LNG)
}

const FALLBACK_LNG = "en"

var supportedLanguages = []string{"en", "zh_cn"}

// GetMessage returns the message in the current global language, falling back to English
// GetMessage 返回当前全局语言的消息，缺失时回退为英文
func (l lang) GetMessage() string {
	switch GetGlobalDefaultLang() {
	case "zh_cn":
		if l.zh_cn != "" {
			return l.zh_cn
		}
	}
	return l.en
}

// GetSupportedLanguages returns all supported language keys
// GetSupportedLanguages 返回支持的语言列表
func GetSupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// SetGlobalDefaultLang sets the global default language
// 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	for _, l := range supportedLanguages {
		if language == l {
			lng.Store(language)
			return nil
		}
	}
	lng.Store(FALLBACK_LNG)
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global default language
// GetGlobalDefaultLang 获取全局默认语言
func GetGlobalDefaultLang() string {
	if v, ok := lng.Load().(string); ok {
		return v
	}
	return FALLBACK_LNG
}
