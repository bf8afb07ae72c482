// Package rag 实现检索增强生成（查询向量化、召回、上下文拼装、回复生成）。
package rag

import "context"

// Embedder 定义应用层对文本向量化能力的最小依赖（port）。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator 定义应用层对文本生成能力的最小依赖（port）。
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
	Model() string
}

// VectorIndex 定义应用层对向量索引的最小依赖（port）。
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorIndex interface {
	// EnsureIndex 确保集合与索引可用；维度不匹配时重建集合
	EnsureIndex(ctx context.Context, dim int) error
	// Upsert 写入或覆盖文档向量
	Upsert(ctx context.Context, docs []IndexedDocument) error
	// Query 按向量召回 TopK 文档
	Query(ctx context.Context, vector []float32, topK int) ([]ScoredDocument, error)
	// Delete 按 ID 删除文档向量
	Delete(ctx context.Context, ids []string) error
}
