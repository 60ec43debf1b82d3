package http

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应（所有API共用）
// error 字段兼容前端读取 data.error 的习惯，code 为业务错误码
type ErrorResponse struct {
	Error  string `json:"error"`            // 错误消息
	Code   int    `json:"code"`             // 业务错误码（非0表示错误）
	Detail string `json:"detail,omitempty"` // 错误详情（可选）
}

// 业务错误码
const (
	CodeInvalidRequest  = 40001
	CodeInvalidFeedback = 40002
	CodeUnauthorized    = 40101
	CodeTokenInvalid    = 40102
	CodeNotFound        = 40401
	CodeRateLimited     = 42901
	CodePanic           = 50000
	CodeInternal        = 50001
)

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string, detail ...string) *ErrorResponse {
	resp := &ErrorResponse{
		Code:  code,
		Error: message,
	}
	if len(detail) > 0 && detail[0] != "" {
		resp.Detail = detail[0]
	}
	return resp
}

// AbortWithError 写入错误响应并终止后续处理
func AbortWithError(c *gin.Context, status, code int, message string, detail ...string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(code, message, detail...))
}
