// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// IdentityContextKey 身份上下文 Key 类型
type IdentityContextKey string

const (
	// UserIDKey 用户 ID 上下文 Key
	UserIDKey IdentityContextKey = "user_id"
	// UserEmailKey 用户邮箱上下文 Key
	UserEmailKey IdentityContextKey = "user_email"
)

// GetUserID 从 context 中获取用户 ID
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserIDFromGin 从 Gin Context 中获取用户 ID
func GetUserIDFromGin(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetUserEmailFromGin 从 Gin Context 中获取用户邮箱
func GetUserEmailFromGin(c *gin.Context) string {
	return c.GetString("user_email")
}
