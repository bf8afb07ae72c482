// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
)

// ChatSessionRepository 会话仓储实现
type ChatSessionRepository struct {
	client *Client
}

// NewChatSessionRepository 创建会话仓储
func NewChatSessionRepository(client *Client) *ChatSessionRepository {
	return &ChatSessionRepository{client: client}
}

// Create 创建会话
func (r *ChatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chat session: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取会话
func (r *ChatSessionRepository) GetByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var session entity.ChatSession
	if err := db.First(&session, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	return &session, nil
}

// Update 更新会话
func (r *ChatSessionRepository) Update(ctx context.Context, session *entity.ChatSession) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update chat session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (r *ChatSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ChatSession{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

// ListByUser 获取用户会话列表
func (r *ChatSessionRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ChatSession], error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ChatSession{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count chat sessions: %w", err)
	}

	var sessions []*entity.ChatSession
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&sessions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}

	return repository.NewPagedResult(sessions, total, pagination), nil
}

// DeleteEmpty 删除指定时刻前更新且无消息的会话
func (r *ChatSessionRepository) DeleteEmpty(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.DeleteEmpty")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Where("updated_at < ?", before).
		Where("NOT EXISTS (SELECT 1 FROM messages WHERE messages.session_id = chat_sessions.id)").
		Delete(&entity.ChatSession{})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to delete empty sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountActiveSince 统计指定时刻后有更新的会话数
func (r *ChatSessionRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatSessionRepository.CountActiveSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.ChatSession{}).Where("updated_at >= ?", since).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}
