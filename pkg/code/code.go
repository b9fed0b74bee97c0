package code

import (
	"fmt"
	"net/http"
)

// Code is a numbered result with a bilingual message, an HTTP status and optional payload
// Code 带双语消息、HTTP 状态码和可选数据的编号结果
type Code struct {
	// 状态码
	code int
	// 是否成功
	status bool
	// HTTP 状态码
	httpStatus int
	// 错误消息
	Lang lang
	// 数据
	data     interface{}
	haveData bool
	// 错误详细信息
	details     []string
	haveDetails bool
}

var codes = map[int]string{}

// NewError registers a failure code, panics on duplicates
// NewError 注册失败码，重复时 panic
func NewError(code int, httpStatus int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("错误码 %d 已经存在，请更换一个", code))
	}
	codes[code] = l.GetMessage()
	return &Code{code: code, status: false, httpStatus: httpStatus, Lang: l}
}

var sussCodes = map[int]string{}

// NewSuss registers a success code
// NewSuss 注册成功码
func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("成功码 %d 已经存在，请更换一个", code))
	}
	sussCodes[code] = l.GetMessage()
	return &Code{code: code, status: true, httpStatus: http.StatusOK, Lang: l}
}

// Clone creates a fresh copy without data or details
// Clone 创建一个新的副本，不携带数据与详情
func (e *Code) Clone() *Code {
	return &Code{
		code:       e.code,
		status:     e.status,
		httpStatus: e.httpStatus,
		Lang:       e.Lang,
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

// WithData returns a copy carrying data, the registered code stays untouched
// WithData 返回携带数据的副本，不修改已注册的码
func (e *Code) WithData(data interface{}) *Code {
	c := e.Clone()
	c.details, c.haveDetails = e.details, e.haveDetails
	c.haveData = true
	c.data = data
	return c
}

// WithDetails returns a copy carrying details
// WithDetails 返回携带详情的副本
func (e *Code) WithDetails(details ...string) *Code {
	c := e.Clone()
	c.data, c.haveData = e.data, e.haveData
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

// StatusCode is the HTTP status used when the code is written as a response
// StatusCode 输出响应时使用的 HTTP 状态码
func (e *Code) StatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusOK
	}
	return e.httpStatus
}
