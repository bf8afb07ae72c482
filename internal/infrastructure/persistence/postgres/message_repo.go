// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
)

// MessageRepository 消息仓储实现
type MessageRepository struct {
	client *Client
}

// NewMessageRepository 创建消息仓储
func NewMessageRepository(client *Client) *MessageRepository {
	return &MessageRepository{client: client}
}

// Create 创建消息
func (r *MessageRepository) Create(ctx context.Context, message *entity.Message) error {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(message).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListBySession 获取会话消息列表（按时间升序）
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Message], error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.ListBySession")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Message{}).Where("session_id = ?", sessionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []*entity.Message
	if err := query.Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&messages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return repository.NewPagedResult(messages, total, pagination), nil
}

// ListRecentBySession 获取会话最近的 limit 条消息，按时间升序返回
func (r *MessageRepository) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.ListRecentBySession")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	db := getDB(ctx, r.client.db)
	var messages []*entity.Message
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	// 反转为时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountBySession 统计会话消息数
func (r *MessageRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.CountBySession")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Message{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// DeleteOlderThan 删除指定时刻前的消息
func (r *MessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.DeleteOlderThan")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Delete(&entity.Message{}, "created_at < ?", cutoff)
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete old messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteBySession 删除会话下全部消息
func (r *MessageRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.DeleteBySession")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Message{}, "session_id = ?", sessionID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete session messages: %w", err)
	}
	return nil
}
