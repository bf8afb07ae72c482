// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ai-chatbot-api/internal/infrastructure/persistence/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量
	Burst int
}

// RateLimit 限流中间件，按用户（或匿名来源 IP）与路径做滑动窗口限流
func RateLimit(cfg RateLimitConfig, limiter *redis.RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	limit := cfg.RequestsPerSecond
	if cfg.Burst > limit {
		limit = cfg.Burst
	}

	return func(c *gin.Context) {
		var key string
		if userID := GetUserIDFromGin(c); userID != "" {
			key = redis.BuildUserRateLimitKey(userID, c.Request.URL.Path)
		} else {
			key = redis.BuildRateLimitKey(c.ClientIP(), c.Request.URL.Path)
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     429,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
