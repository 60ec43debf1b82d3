package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kazini/internal/pkg/ctxutil"
	httputil "kazini/internal/pkg/http"
	"kazini/internal/pkg/jwt"
)

// Auth JWT 认证中间件
// 从 Authorization header 中提取 Bearer token，验证后注入 user_id 到 context
func Auth(jwtUtil *jwt.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.AbortWithError(c, http.StatusUnauthorized, httputil.CodeUnauthorized, "Authentication credentials were not provided.")
			return
		}

		// Bearer {token}
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || tokenString == "" {
			httputil.AbortWithError(c, http.StatusUnauthorized, httputil.CodeUnauthorized, "Invalid authorization header")
			return
		}

		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			msg := "Token is invalid"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "Token has expired"
			}
			httputil.AbortWithError(c, http.StatusUnauthorized, httputil.CodeTokenInvalid, msg)
			return
		}

		ctx := ctxutil.WithUserID(c.Request.Context(), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", claims.UserID)

		c.Next()
	}
}
