// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ai-chatbot-api/internal/domain/entity"
)

// TokenRepository 一次性令牌仓储实现
type TokenRepository struct {
	client *Client
}

// NewTokenRepository 创建令牌仓储
func NewTokenRepository(client *Client) *TokenRepository {
	return &TokenRepository{client: client}
}

// Create 创建令牌
func (r *TokenRepository) Create(ctx context.Context, token *entity.ActionToken) error {
	ctx, span := tracer.Start(ctx, "postgres.TokenRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(token).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetByToken 根据令牌值与类型获取令牌
func (r *TokenRepository) GetByToken(ctx context.Context, token string, kind entity.TokenKind) (*entity.ActionToken, error) {
	ctx, span := tracer.Start(ctx, "postgres.TokenRepository.GetByToken")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var record entity.ActionToken
	if err := db.First(&record, "token = ? AND kind = ?", token, kind).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &record, nil
}

// MarkUsed 标记令牌已消费
func (r *TokenRepository) MarkUsed(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.TokenRepository.MarkUsed")
	defer span.End()

	db := getDB(ctx, r.client.db)
	now := time.Now()
	if err := db.Model(&entity.ActionToken{}).Where("id = ?", id).Update("used_at", now).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	return nil
}

// InvalidateByUser 作废用户名下某类型的全部未消费令牌
func (r *TokenRepository) InvalidateByUser(ctx context.Context, userID string, kind entity.TokenKind) error {
	ctx, span := tracer.Start(ctx, "postgres.TokenRepository.InvalidateByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	now := time.Now()
	if err := db.Model(&entity.ActionToken{}).
		Where("user_id = ? AND kind = ? AND used_at IS NULL", userID, kind).
		Update("used_at", now).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to invalidate tokens: %w", err)
	}
	return nil
}

// DeleteExpired 删除已过期令牌
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.TokenRepository.DeleteExpired")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Delete(&entity.ActionToken{}, "expires_at < ?", time.Now())
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete expired tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
