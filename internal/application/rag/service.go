package rag

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/infrastructure/mistral"
	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/metrics"
)

var tracer = otel.Tracer("rag")

// Service RAG 查询与索引服务。
// 能力按 LLM 与向量索引两条线独立降级：一侧不可用不影响另一侧。
type Service struct {
	embedder  Embedder
	generator Generator
	index     VectorIndex

	topK      int
	threshold float32
	dimension int

	llmReady   bool
	indexReady bool
}

// NewService 创建 RAG 服务并初始化向量索引。
// embedder/generator/index 任一为 nil 表示对应能力未配置，服务降级运行。
func NewService(ctx context.Context, embedder Embedder, generator Generator, index VectorIndex, cfg *config.RAGConfig) *Service {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 1024
	}

	s := &Service{
		embedder:  embedder,
		generator: generator,
		index:     index,
		topK:      topK,
		threshold: cfg.RelevanceThreshold,
		dimension: dimension,
		llmReady:  embedder != nil && generator != nil,
	}

	if index != nil {
		if err := index.EnsureIndex(ctx, dimension); err != nil {
			logger.Warn(ctx, "vector index initialization failed, running without retrieval", "error", err)
		} else {
			s.indexReady = true
		}
	}

	return s
}

// Available 任一能力就绪即视为可用：索引不可用时仍可无上下文生成，
// LLM 不可用时生成环节自行降级为兜底文案。两条线都不可用才返回 false。
func (s *Service) Available() bool {
	return s != nil && (s.llmReady || s.indexReady)
}

// Capabilities 返回能力快照
func (s *Service) Capabilities() Capabilities {
	if s == nil {
		return Capabilities{}
	}
	return Capabilities{
		LLMReady:   s.llmReady,
		IndexReady: s.indexReady,
	}
}

// ProcessQuery 执行一次完整 RAG 查询：向量化 -> 召回 -> 上下文拼装 -> 生成。
// 生成失败不作为错误返回，而是映射为兜底回复。
func (s *Service) ProcessQuery(ctx context.Context, query string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "rag.ProcessQuery")
	defer span.End()

	query = strings.TrimSpace(query)

	start := time.Now()

	// 1) 召回。空查询跳过检索；向量化或检索失败时降级为空召回，不中断查询。
	docs := []ScoredDocument{}
	if query != "" {
		docs = s.retrieve(ctx, query)
	}

	// 2) 上下文拼装。阈值只作用于上下文，召回列表原样返回。
	contextBlock := buildContext(docs, s.threshold)
	contextUsed := contextBlock != ""

	// 3) 生成回复
	response := s.generate(ctx, contextBlock, query)

	span.SetAttributes(
		attribute.Int("rag.documents", len(docs)),
		attribute.Bool("rag.context_used", contextUsed),
	)
	metrics.RAGQueriesTotal.WithLabelValues(strconv.FormatBool(contextUsed)).Inc()
	metrics.RAGQueryDuration.WithLabelValues(strconv.FormatBool(contextUsed)).Observe(time.Since(start).Seconds())

	return &QueryResult{
		Response:          response,
		RelevantDocuments: docs,
		ContextUsed:       contextUsed,
	}, nil
}

// retrieve 向量化并召回 TopK 文档，失败时返回空列表
func (s *Service) retrieve(ctx context.Context, query string) []ScoredDocument {
	if !s.indexReady || s.embedder == nil {
		return []ScoredDocument{}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn(ctx, "query embedding failed, continuing without context", "error", err)
		return []ScoredDocument{}
	}

	docs, err := s.index.Query(ctx, vector, s.topK)
	if err != nil {
		logger.Warn(ctx, "vector search failed, continuing without context", "error", err)
		return []ScoredDocument{}
	}
	return docs
}

// generate 生成回复，失败时按原因映射兜底文案
func (s *Service) generate(ctx context.Context, contextBlock, query string) string {
	if !s.llmReady {
		return apologyNoService
	}

	out, err := s.generator.Generate(ctx, systemPrompt, buildUserPrompt(contextBlock, query))
	if err == nil {
		return out
	}

	logger.Error(ctx, "response generation failed", err)

	var apiErr *mistral.APIError
	switch {
	case errors.Is(err, mistral.ErrRateLimited):
		return apologyRateLimited
	case errors.As(err, &apiErr):
		return apologyAPIError
	default:
		return apologyGeneric
	}
}

// AddDocument 向量化并写入文档。写入元数据中 title/content/doc_id 覆盖调用方同名字段。
func (s *Service) AddDocument(ctx context.Context, docID, title, content string, metadata map[string]interface{}) error {
	ctx, span := tracer.Start(ctx, "rag.AddDocument",
		trace.WithAttributes(attribute.String("doc_id", docID)))
	defer span.End()

	if s.embedder == nil {
		return ErrEmbedderDisabled
	}
	if !s.indexReady {
		return ErrIndexDisabled
	}

	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		span.RecordError(err)
		metrics.RAGDocumentsIndexed.WithLabelValues("error").Inc()
		return err
	}

	merged := make(map[string]interface{}, len(metadata)+3)
	for k, v := range metadata {
		merged[k] = v
	}
	merged["title"] = title
	merged["content"] = content
	merged["doc_id"] = docID

	err = s.index.Upsert(ctx, []IndexedDocument{{
		ID:       docID,
		Vector:   vector,
		Title:    title,
		Content:  content,
		Metadata: merged,
	}})
	if err != nil {
		span.RecordError(err)
		metrics.RAGDocumentsIndexed.WithLabelValues("error").Inc()
		return err
	}

	metrics.RAGDocumentsIndexed.WithLabelValues("success").Inc()
	return nil
}

// SearchDocuments 仅检索，不生成。返回未过滤的召回列表。
func (s *Service) SearchDocuments(ctx context.Context, query string, topK int) ([]ScoredDocument, error) {
	ctx, span := tracer.Start(ctx, "rag.SearchDocuments")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if !s.indexReady {
		return nil, ErrIndexDisabled
	}
	if s.embedder == nil {
		return nil, ErrEmbedderDisabled
	}
	if topK <= 0 {
		topK = s.topK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return s.index.Query(ctx, vector, topK)
}

// DeleteDocument 从索引中删除文档
func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	ctx, span := tracer.Start(ctx, "rag.DeleteDocument",
		trace.WithAttributes(attribute.String("doc_id", docID)))
	defer span.End()

	if !s.indexReady {
		return ErrIndexDisabled
	}
	return s.index.Delete(ctx, []string{docID})
}
