package app

import (
	"strings"

	"github.com/haierkeys/lww-note-sync/pkg/code"

	"github.com/gin-gonic/gin"
)

// VersionInfo version information // 版本信息
type VersionInfo struct {
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}

type Response struct {
	Ctx *gin.Context
}

// Res is the unified envelope used for error and informational responses: Code/Status/Msg/Data
// Res 是错误与信息类响应使用的统一结构：Code/Status/Msg/Data
type Res struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Message interface{} `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func NewResponse(ctx *gin.Context) *Response {
	return &Response{
		Ctx: ctx,
	}
}

// GetRequestIP gets the request IP
// GetRequestIP 获取ip
func GetRequestIP(c *gin.Context) string {
	reqIP := c.ClientIP()
	if reqIP == "::1" {
		reqIP = "127.0.0.1"
	}
	return reqIP
}

// ToResponse writes the code as a Res envelope with the code's HTTP status
// ToResponse 以 Res 结构输出，HTTP 状态码由 Code 决定
func (r *Response) ToResponse(codeObj *code.Code) {
	r.Ctx.Set("status_code", codeObj.StatusCode())

	content := Res{
		Code:    codeObj.Code(),
		Status:  codeObj.Status(),
		Message: codeObj.Lang.GetMessage(),
		Data:    codeObj.Data(),
	}

	if codeObj.HaveDetails() {
		content.Details = strings.Join(codeObj.Details(), ",")
	}

	r.send(codeObj.StatusCode(), content)
}

// ToRaw writes a bare JSON body without the Res envelope, used by the sync wire protocol
// ToRaw 直接输出 JSON 数据（不包裹 Res），用于同步协议
func (r *Response) ToRaw(statusCode int, body interface{}) {
	r.Ctx.Set("status_code", statusCode)
	r.send(statusCode, body)
}

// ToNoContent writes an empty 204 response
// ToNoContent 输出空的 204 响应
func (r *Response) ToNoContent() {
	r.Ctx.Set("status_code", 204)
	r.Ctx.Status(204)
}

func (r *Response) send(statusCode int, content interface{}) {
	r.Ctx.JSON(statusCode, content)
}
