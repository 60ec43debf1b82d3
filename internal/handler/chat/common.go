package chat

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"kazini/internal/pkg/ctxutil"
	httputil "kazini/internal/pkg/http"
	chatsvc "kazini/internal/service/chat"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// ConversationURI 会话路径参数
type ConversationURI struct {
	ConversationID int64 `uri:"conversation_id" binding:"required"`
}

// MessageURI 消息路径参数
type MessageURI struct {
	ConversationID int64 `uri:"conversation_id" binding:"required"`
	MessageID      int64 `uri:"message_id" binding:"required"`
}

// currentUser 读取认证中间件注入的用户ID，缺失时直接返回 401
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := ctxutil.GetUserID(c.Request.Context())
	if !ok {
		httputil.AbortWithError(c, http.StatusUnauthorized, httputil.CodeUnauthorized, "Authentication credentials were not provided.")
		return "", false
	}
	return userID, true
}

// writeError 把 service 层错误映射为 HTTP 状态码与业务错误码
func writeError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, chatsvc.ErrEmptyMessage):
		httputil.AbortWithError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, err.Error())
	case errors.Is(err, chatsvc.ErrInvalidFeedback):
		httputil.AbortWithError(c, http.StatusBadRequest, httputil.CodeInvalidFeedback, err.Error())
	case errors.Is(err, chatsvc.ErrRateLimitExceeded):
		httputil.AbortWithError(c, http.StatusTooManyRequests, httputil.CodeRateLimited, err.Error())
	case errors.Is(err, chatsvc.ErrNotFound):
		httputil.AbortWithError(c, http.StatusNotFound, httputil.CodeNotFound, notFoundMsg)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("chat request failed")
		httputil.AbortWithError(c, http.StatusInternalServerError, httputil.CodeInternal, "Internal Server Error")
	}
}

// pageURL 生成分页链接，第一页不带 page 参数
func pageURL(c *gin.Context, page int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	s := u.String()
	return &s
}
