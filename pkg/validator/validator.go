// Package validator plugs a lazily initialized validator/v10 instance
// into gin's binding layer.
package validator

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CustomValidator 自定义验证器，实现 binding.StructValidator 接口
type CustomValidator struct {
	once     sync.Once
	validate *validator.Validate
}

// NewCustomValidator 创建自定义验证器实例
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// ValidateStruct 验证结构体
func (v *CustomValidator) ValidateStruct(obj interface{}) error {
	if reflect.Indirect(reflect.ValueOf(obj)).Kind() != reflect.Struct {
		return nil
	}
	v.lazyinit()
	return v.validate.Struct(obj)
}

// Engine 返回底层验证引擎
func (v *CustomValidator) Engine() interface{} {
	v.lazyinit()
	return v.validate
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
	})
}
