package code

import (
	"errors"
	"fmt"
	"net/http"
)

type Code struct {
	// 状态码
	code int
	// 状态
	status bool
	// 错误消息
	Lang lang
	// 数据
	data interface{}
	// 是否含有Data
	haveData bool
	// 错误详细信息
	details []string
	// 是否含有详情
	haveDetails bool
}

var codes = map[int]string{}

func NewError(code int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("code %d already exists, pick another one", code))
	}
	codes[code] = l.GetMessage()
	return &Code{code: code, status: false, Lang: l}
}

var sussCodes = map[int]string{}

func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("success code %d already exists, pick another one", code))
	}
	sussCodes[code] = l.GetMessage()
	return &Code{code: code, status: true, Lang: l}
}

func (e *Code) Reset() *Code {
	e.data = nil
	e.haveData = false
	e.details = []string{}
	e.haveDetails = false
	return e
}

// Clone creates a detached copy so shared code values stay immutable.
func (e *Code) Clone() *Code {
	return &Code{
		code:        e.code,
		status:      e.status,
		Lang:        e.Lang,
		data:        nil,
		haveData:    false,
		details:     []string{},
		haveDetails: false,
	}
}

func (e *Code) Error() string {
	return e.Msg()
}

func (e *Code) Code() int {
	return e.code
}

func (e *Code) Status() bool {
	return e.status
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

func (e *Code) Details() []string {
	return e.details
}

func (e *Code) Data() interface{} {
	return e.data
}

func (e *Code) HaveDetails() bool {
	return e.haveDetails
}

func (e *Code) HaveData() bool {
	return e.haveData
}

func (e *Code) WithData(data interface{}) *Code {
	c := e.Clone()
	c.haveData = true
	c.data = data
	c.details = e.details
	c.haveDetails = e.haveDetails
	return c
}

func (e *Code) WithDetails(details ...string) *Code {
	c := e.Clone()
	c.data = e.data
	c.haveData = e.haveData
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

func (e *Code) StatusCode() int {
	return http.StatusOK
}

// Is matches clones against their origin value, so
// errors.Is(err, code.ErrorNoteNotFound) works across WithDetails copies.
func (e *Code) Is(target error) bool {
	var t *Code
	if errors.As(target, &t) {
		return e.code == t.code
	}
	return false
}
