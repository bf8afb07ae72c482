// Package mistral 提供 Mistral AI 平台客户端
package mistral

import (
	"context"
	"time"
)

// RetryPolicy 限流重试策略（指数退避，仅对 429 生效）
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
	}
}

// Delay 第 attempt 次失败后的等待时长（attempt 从 0 开始，逐次翻倍）
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return p.BaseDelay << uint(attempt)
}

// sleepFunc 可注入的等待函数，测试中用于记录而非真实等待
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
