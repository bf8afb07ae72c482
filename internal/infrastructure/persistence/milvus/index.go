// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/metrics"
)

// DocumentIndex 基于 Milvus 的知识库文档索引
type DocumentIndex struct {
	client *Client
	dim    int
}

// NewDocumentIndex 创建文档索引
func NewDocumentIndex(client *Client) *DocumentIndex {
	return &DocumentIndex{client: client}
}

var _ rag.VectorIndex = (*DocumentIndex)(nil)

// EnsureIndex 确保 documents 集合、索引可用且已加载。
// 集合存在但向量维度不匹配时会删除并按新维度重建。
func (x *DocumentIndex) EnsureIndex(ctx context.Context, dim int) error {
	if x == nil || x.client == nil || x.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DocumentIndex.EnsureIndex",
		trace.WithAttributes(attribute.Int("dim", dim)))
	defer span.End()

	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	collName := x.client.CollectionName(CollectionDocuments)

	exists, err := x.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		current, err := x.vectorDimension(ctx, collName)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if current == dim {
			x.dim = dim
			return x.client.milvus.LoadCollection(ctx, collName, false)
		}

		// 维度不匹配：删除旧集合，等待删除完成后重建
		logger.Warn(ctx, "documents collection dimension mismatch, recreating",
			"collection", collName, "current", current, "expected", dim)
		if err := x.client.milvus.DropCollection(ctx, collName); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to drop collection: %w", err)
		}
		if err := x.waitDropped(ctx, collName); err != nil {
			span.RecordError(err)
			return err
		}
	}

	schema := DocumentsSchema(dim)
	schema.CollectionName = collName
	if err := x.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		x.client.config.HNSWM,
		x.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build index: %w", err)
	}
	if err := x.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	x.dim = dim
	return x.client.milvus.LoadCollection(ctx, collName, false)
}

// vectorDimension 读取集合 vector 字段的维度
func (x *DocumentIndex) vectorDimension(ctx context.Context, collName string) (int, error) {
	coll, err := x.client.milvus.DescribeCollection(ctx, collName)
	if err != nil {
		return 0, fmt.Errorf("failed to describe collection: %w", err)
	}
	if coll == nil || coll.Schema == nil {
		return 0, fmt.Errorf("collection %s has no schema", collName)
	}
	for _, field := range coll.Schema.Fields {
		if field.Name != "vector" {
			continue
		}
		dim, err := strconv.Atoi(field.TypeParams["dim"])
		if err != nil {
			return 0, fmt.Errorf("invalid dim on collection %s: %w", collName, err)
		}
		return dim, nil
	}
	return 0, fmt.Errorf("collection %s has no vector field", collName)
}

// waitDropped 等待集合删除完成
func (x *DocumentIndex) waitDropped(ctx context.Context, collName string) error {
	for i := 0; i < 25; i++ {
		exists, err := x.client.milvus.HasCollection(ctx, collName)
		if err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if !exists {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return fmt.Errorf("collection %s was not dropped in time", collName)
}

// Upsert 写入或覆盖文档向量
func (x *DocumentIndex) Upsert(ctx context.Context, docs []rag.IndexedDocument) error {
	if x == nil || x.client == nil || x.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DocumentIndex.Upsert",
		trace.WithAttributes(attribute.Int("count", len(docs))))
	defer span.End()

	if len(docs) == 0 {
		return nil
	}

	// 向量维度在发起网络调用前校验
	dim, err := validateVectors(docs, x.dim)
	if err != nil {
		span.RecordError(err)
		return err
	}

	collName := x.client.CollectionName(CollectionDocuments)

	ids := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	titles := make([]string, len(docs))
	contents := make([]string, len(docs))
	metadatas := make([]string, len(docs))

	for i, doc := range docs {
		ids[i] = doc.ID
		vectors[i] = doc.Vector
		titles[i] = doc.Title
		contents[i] = doc.Content

		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}
		metadatas[i] = string(meta)
	}

	_, err = x.client.milvus.Upsert(ctx, collName, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", dim, vectors),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("metadata", metadatas),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert documents: %w", err)
	}
	return nil
}

// validateVectors 校验批次内全部向量长度与索引维度一致。
// dim 未知时采用首条向量的长度，并要求整批一致。
func validateVectors(docs []rag.IndexedDocument, dim int) (int, error) {
	if dim <= 0 {
		dim = len(docs[0].Vector)
	}
	if dim <= 0 {
		return 0, fmt.Errorf("document %s has an empty vector", docs[0].ID)
	}
	for _, doc := range docs {
		if len(doc.Vector) != dim {
			return 0, fmt.Errorf("document %s vector length %d does not match index dimension %d",
				doc.ID, len(doc.Vector), dim)
		}
	}
	return dim, nil
}

// Query 按向量召回 TopK 文档
func (x *DocumentIndex) Query(ctx context.Context, vector []float32, topK int) ([]rag.ScoredDocument, error) {
	if x == nil || x.client == nil || x.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DocumentIndex.Query",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	collName := x.client.CollectionName(CollectionDocuments)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	start := time.Now()
	results, err := x.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		[]string{"id", "title", "content", "metadata"},
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionDocuments).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues(CollectionDocuments, "error").Inc()
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionDocuments, "success").Inc()

	var docs []rag.ScoredDocument
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			doc := rag.ScoredDocument{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				doc.ID = idCol.Data()[i]
			}
			if titleCol, ok := result.Fields.GetColumn("title").(*entity.ColumnVarChar); ok {
				doc.Title = titleCol.Data()[i]
			}
			if contentCol, ok := result.Fields.GetColumn("content").(*entity.ColumnVarChar); ok {
				doc.Content = contentCol.Data()[i]
			}
			if metaCol, ok := result.Fields.GetColumn("metadata").(*entity.ColumnVarChar); ok {
				raw := metaCol.Data()[i]
				if raw != "" {
					var meta map[string]interface{}
					if err := json.Unmarshal([]byte(raw), &meta); err == nil {
						doc.Metadata = meta
					}
				}
			}

			docs = append(docs, doc)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(docs)))
	return docs, nil
}

// Delete 按 ID 删除文档向量
func (x *DocumentIndex) Delete(ctx context.Context, ids []string) error {
	if x == nil || x.client == nil || x.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.DocumentIndex.Delete",
		trace.WithAttributes(attribute.Int("count", len(ids))))
	defer span.End()

	collName := x.client.CollectionName(CollectionDocuments)

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("id in [%s]", strings.Join(quoted, ", "))

	if err := x.client.milvus.Delete(ctx, collName, "", expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
