package code

import (
	"errors"
	"fmt"
	"reflect"
)

// lang stores the English and Chinese text for a code message.
// lang 类型，用来存储英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

// Default language is English // 默认语言为英文
var lng = "en"

const FALLBACK_LNG = "en"

// GetMessage returns the message for the active language.
// GetMessage 方法根据传入的语言返回相应的消息
func (l lang) GetMessage() string {
	if lng == "" {
		lng = FALLBACK_LNG
	}
	val := reflect.ValueOf(l)
	field := val.FieldByName(lng)
	if field.IsValid() && field.String() != "" {
		return field.String()
	}
	fallbackField := val.FieldByName(FALLBACK_LNG)
	if fallbackField.IsValid() && fallbackField.String() != "" {
		return fallbackField.String()
	}
	return fmt.Sprintf("No message available for language: %s", lng)
}

// GetSupportedLanguages returns all languages supported by the lang type.
// GetSupportedLanguages 函数返回 lang 类型支持的所有语言
func GetSupportedLanguages() []string {
	var languages []string
	typ := reflect.TypeOf(lang{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		languages = append(languages, field.Name)
	}
	return languages
}

// SetGlobalDefaultLang sets the global default language.
// SetGlobalDefaultLang 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	supportedLanguages := GetSupportedLanguages()

	isValidLang := false
	for _, l := range supportedLanguages {
		if language == l {
			isValidLang = true
			break
		}
	}
	if isValidLang {
		lng = language
		return nil
	}
	lng = FALLBACK_LNG
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global default language.
func GetGlobalDefaultLang() string {
	return lng
}
