package app

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	val "github.com/go-playground/validator/v10"

	"github.com/gin-gonic/gin"
)

// ValidError a single validation failure
type ValidError struct {
	Key     string
	Message string
}

// ValidErrors validation failure list
type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

// Errors returns the failure messages.
func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// BindAndValid binds the request to v and validates it, translating
// validator messages through the translator installed by the Lang
// middleware.
func BindAndValid(c *gin.Context, v interface{}) (bool, ValidErrors) {
	var errs ValidErrors
	err := c.ShouldBind(v)
	if err != nil {
		v := c.Value("trans")
		trans, _ := v.(ut.Translator)
		verrs, ok := err.(val.ValidationErrors)
		if !ok {
			errs = append(errs, &ValidError{
				Key:     "body",
				Message: err.Error(),
			})
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

	return true, nil
}
