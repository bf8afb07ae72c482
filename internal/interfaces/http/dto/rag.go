// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/domain/entity"
)

// AddDocumentRequest 入库文档请求
type AddDocumentRequest struct {
	DocID    string                 `json:"doc_id" binding:"required,max=64"`
	Title    string                 `json:"title" binding:"required,max=512"`
	Content  string                 `json:"content" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// DocumentResponse 文档记录响应
type DocumentResponse struct {
	DocID     string    `json:"doc_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToDocumentResponse 实体转换为响应
func ToDocumentResponse(d *entity.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	return &DocumentResponse{
		DocID:     d.DocID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

// ToDocumentListResponse 实体列表转换为响应
func ToDocumentListResponse(docs []*entity.Document) *DocumentListResponse {
	items := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = ToDocumentResponse(d)
	}
	return &DocumentListResponse{Documents: items}
}

// BulkIndexDocument 批量索引的单条文档
type BulkIndexDocument struct {
	ID       string                 `json:"id" binding:"omitempty,max=64"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// BulkIndexRequest 批量索引请求
type BulkIndexRequest struct {
	Documents []BulkIndexDocument `json:"documents" binding:"required,min=1,dive"`
}

// BulkIndexResponse 批量索引响应
type BulkIndexResponse struct {
	IndexedCount int `json:"indexed_count"`
}

// SearchRequest 向量检索请求
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k" binding:"omitempty,min=1,max=20"`
}

// SearchResponse 向量检索响应
type SearchResponse struct {
	Documents []rag.ScoredDocument `json:"documents"`
}

// RAGStatusResponse RAG 子系统状态响应
type RAGStatusResponse struct {
	Enabled    bool   `json:"enabled"`
	LLMReady   bool   `json:"llm_ready"`
	IndexReady bool   `json:"index_ready"`
	Model      string `json:"model,omitempty"`
}
