// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"ai-chatbot-api/internal/domain/entity"
)

// ChatSessionRepository 会话仓储接口
type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	GetByID(ctx context.Context, id string) (*entity.ChatSession, error)
	Update(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.ChatSession], error)
	// CountActiveSince 统计指定时刻后有更新的会话数
	CountActiveSince(ctx context.Context, since time.Time) (int64, error)
	// DeleteEmpty 删除指定时刻前更新且无消息的会话，返回删除数量
	DeleteEmpty(ctx context.Context, before time.Time) (int64, error)
}

// MessageRepository 消息仓储接口
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	ListBySession(ctx context.Context, sessionID string, pagination Pagination) (*PagedResult[*entity.Message], error)
	// ListRecentBySession 获取会话最近的 limit 条消息（按时间升序返回）
	ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
	// DeleteOlderThan 删除指定时刻前的消息，返回删除数量
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteBySession 删除会话下全部消息
	DeleteBySession(ctx context.Context, sessionID string) error
}
