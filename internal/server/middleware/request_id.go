package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kazini/internal/pkg/ctxutil"
)

const (
	// RequestIDKey gin.Context 中的请求ID键
	RequestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestID 请求ID中间件
// 沿用上游传入的合法 UUID，否则生成新的；同时写入 request context 供 service 层日志使用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
