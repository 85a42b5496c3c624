package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"

	"github.com/anchored-notes/anchored-sync-service/pkg/code"
)

// LangWithTranslator resolves the request language and installs the
// matching validator translator.
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		}

		lang = strings.ToLower(strings.ReplaceAll(lang, "-", "_"))

		trans, found := uni.GetTranslator(lang)
		if found {
			c.Set("trans", trans)
		} else {
			trans, _ := uni.GetTranslator("en")
			c.Set("trans", trans)
		}

		code.SetGlobalDefaultLang(lang)

		c.Next()
	}
}
