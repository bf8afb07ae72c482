// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
)

// DocumentRepository 文档记录仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档记录仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Upsert 按 DocID 创建或更新文档记录
func (r *DocumentRepository) Upsert(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "metadata", "updated_at"}),
	}).Create(doc).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// GetByDocID 根据向量索引 ID 获取文档记录
func (r *DocumentRepository) GetByDocID(ctx context.Context, docID string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByDocID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.Document
	if err := db.First(&doc, "doc_id = ?", docID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// List 获取文档记录列表
func (r *DocumentRepository) List(ctx context.Context, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Document{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []*entity.Document
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return repository.NewPagedResult(docs, total, pagination), nil
}

// Delete 根据向量索引 ID 删除文档记录
func (r *DocumentRepository) Delete(ctx context.Context, docID string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Document{}, "doc_id = ?", docID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Count 统计文档记录数
func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Count")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Document{}).Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
