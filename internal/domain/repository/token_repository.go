// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ai-chatbot-api/internal/domain/entity"
)

// TokenRepository 一次性令牌仓储接口
type TokenRepository interface {
	// Create 创建令牌
	Create(ctx context.Context, token *entity.ActionToken) error

	// GetByToken 根据令牌值与类型获取令牌
	GetByToken(ctx context.Context, token string, kind entity.TokenKind) (*entity.ActionToken, error)

	// MarkUsed 标记令牌已消费
	MarkUsed(ctx context.Context, id string) error

	// InvalidateByUser 作废用户名下某类型的全部未消费令牌
	InvalidateByUser(ctx context.Context, userID string, kind entity.TokenKind) error

	// DeleteExpired 删除已过期令牌，返回删除数量
	DeleteExpired(ctx context.Context) (int64, error)
}
