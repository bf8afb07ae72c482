// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ai-chatbot-api/internal/domain/entity"
)

// DocumentRepository 文档记录仓储接口
type DocumentRepository interface {
	// Upsert 按 DocID 创建或更新文档记录
	Upsert(ctx context.Context, doc *entity.Document) error

	// GetByDocID 根据向量索引 ID 获取文档记录
	GetByDocID(ctx context.Context, docID string) (*entity.Document, error)

	// List 获取文档记录列表
	List(ctx context.Context, pagination Pagination) (*PagedResult[*entity.Document], error)

	// Delete 根据向量索引 ID 删除文档记录
	Delete(ctx context.Context, docID string) error

	// Count 统计文档记录数
	Count(ctx context.Context) (int64, error)
}
