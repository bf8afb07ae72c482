package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/infrastructure/mistral"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeGenerator struct {
	out        string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.out, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

type fakeIndex struct {
	docs      []ScoredDocument
	ensureErr error
	queryErr  error
	upserted  []IndexedDocument
	deleted   []string
}

func (f *fakeIndex) EnsureIndex(ctx context.Context, dim int) error { return f.ensureErr }

func (f *fakeIndex) Upsert(ctx context.Context, docs []IndexedDocument) error {
	f.upserted = append(f.upserted, docs...)
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int) ([]ScoredDocument, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.docs, nil
}

func (f *fakeIndex) Delete(ctx context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func testRAGConfig() *config.RAGConfig {
	return &config.RAGConfig{
		Dimension:          4,
		TopK:               3,
		RelevanceThreshold: 0.7,
	}
}

func TestProcessQuery_ThresholdOnlyFiltersContext(t *testing.T) {
	gen := &fakeGenerator{out: "answer"}
	idx := &fakeIndex{docs: []ScoredDocument{
		{ID: "1", Score: 0.9, Title: "Go", Content: "Go is a language"},
		{ID: "2", Score: 0.7, Title: "Zig", Content: "Zig is a language"},
		{ID: "3", Score: 0.5, Title: "Rust", Content: "Rust is a language"},
	}}

	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, gen, idx, testRAGConfig())
	require.True(t, svc.Available())

	result, err := svc.ProcessQuery(context.Background(), "what is Go?")
	require.NoError(t, err)

	// 召回列表不经过阈值过滤
	assert.Len(t, result.RelevantDocuments, 3)
	assert.True(t, result.ContextUsed)
	assert.Equal(t, "answer", result.Response)

	// 上下文只包含严格高于阈值的文档，恰好等于阈值的不计入
	assert.Contains(t, gen.lastUser, "Document: Go\nContent: Go is a language")
	assert.NotContains(t, gen.lastUser, "Zig")
	assert.NotContains(t, gen.lastUser, "Rust")
	assert.Equal(t, systemPrompt, gen.lastSystem)
}

func TestProcessQuery_NoDocumentAboveThreshold(t *testing.T) {
	gen := &fakeGenerator{out: "answer"}
	idx := &fakeIndex{docs: []ScoredDocument{
		{ID: "1", Score: 0.2, Title: "Go", Content: "Go is a language"},
	}}

	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1}}, gen, idx, testRAGConfig())

	result, err := svc.ProcessQuery(context.Background(), "what is Go?")
	require.NoError(t, err)

	assert.False(t, result.ContextUsed)
	assert.Len(t, result.RelevantDocuments, 1)
	assert.True(t, strings.HasPrefix(gen.lastUser, "Context: \n\n"))
}

func TestProcessQuery_EmbeddingFailureDegradesToNoContext(t *testing.T) {
	gen := &fakeGenerator{out: "answer"}
	idx := &fakeIndex{docs: []ScoredDocument{{ID: "1", Score: 0.9, Title: "t", Content: "c"}}}

	svc := NewService(context.Background(), &fakeEmbedder{err: fmt.Errorf("embed down")}, gen, idx, testRAGConfig())

	result, err := svc.ProcessQuery(context.Background(), "hello")
	require.NoError(t, err)

	assert.Empty(t, result.RelevantDocuments)
	assert.False(t, result.ContextUsed)
	assert.Equal(t, "answer", result.Response)
}

func TestProcessQuery_EmptyQuery(t *testing.T) {
	gen := &fakeGenerator{out: "general knowledge answer"}
	idx := &fakeIndex{docs: []ScoredDocument{{ID: "1", Score: 0.9, Title: "t", Content: "c"}}}
	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1}}, gen, idx, testRAGConfig())

	// 空查询不报错：跳过召回，按空上下文生成降级回复
	result, err := svc.ProcessQuery(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "general knowledge answer", result.Response)
	assert.Empty(t, result.RelevantDocuments)
	assert.False(t, result.ContextUsed)
	assert.True(t, strings.HasPrefix(gen.lastUser, "Context: \n\n"))
}

func TestProcessQuery_GenerationFailureMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rate limited",
			err:  fmt.Errorf("wrapped: %w", mistral.ErrRateLimited),
			want: apologyRateLimited,
		},
		{
			name: "api error",
			err:  &mistral.APIError{StatusCode: 500, Body: "boom"},
			want: apologyAPIError,
		},
		{
			name: "other failure",
			err:  errors.New("network down"),
			want: apologyGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{err: tt.err}
			svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1}}, gen, &fakeIndex{}, testRAGConfig())

			result, err := svc.ProcessQuery(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Response)
		})
	}
}

func TestProcessQuery_NoGenerator(t *testing.T) {
	svc := NewService(context.Background(), nil, nil, &fakeIndex{}, testRAGConfig())

	result, err := svc.ProcessQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, apologyNoService, result.Response)
}

func TestAvailable_AnyCapability(t *testing.T) {
	// 仅 LLM 在线：仍可无上下文生成
	llmOnly := NewService(context.Background(), &fakeEmbedder{}, &fakeGenerator{}, nil, testRAGConfig())
	assert.True(t, llmOnly.Available())

	// 仅索引在线：生成环节兜底
	idxOnly := NewService(context.Background(), nil, nil, &fakeIndex{}, testRAGConfig())
	assert.True(t, idxOnly.Available())

	// 两条线都不可用
	none := NewService(context.Background(), nil, nil, nil, testRAGConfig())
	assert.False(t, none.Available())
}

func TestCapabilities_IndexInitFailure(t *testing.T) {
	idx := &fakeIndex{ensureErr: errors.New("milvus unreachable")}
	svc := NewService(context.Background(), &fakeEmbedder{}, &fakeGenerator{}, idx, testRAGConfig())

	caps := svc.Capabilities()
	assert.True(t, caps.LLMReady)
	assert.False(t, caps.IndexReady)
	assert.True(t, svc.Available())
}

func TestAddDocument_MetadataMerge(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1, 2}}, &fakeGenerator{}, idx, testRAGConfig())

	err := svc.AddDocument(context.Background(), "doc-1", "Title", "Body", map[string]interface{}{
		"source": "manual",
		"title":  "caller title should lose",
	})
	require.NoError(t, err)

	require.Len(t, idx.upserted, 1)
	doc := idx.upserted[0]
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, []float32{1, 2}, doc.Vector)
	assert.Equal(t, "manual", doc.Metadata["source"])
	assert.Equal(t, "Title", doc.Metadata["title"])
	assert.Equal(t, "Body", doc.Metadata["content"])
	assert.Equal(t, "doc-1", doc.Metadata["doc_id"])
}

func TestAddDocument_IndexDisabled(t *testing.T) {
	idx := &fakeIndex{ensureErr: errors.New("down")}
	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1}}, &fakeGenerator{}, idx, testRAGConfig())

	err := svc.AddDocument(context.Background(), "doc-1", "t", "c", nil)
	assert.ErrorIs(t, err, ErrIndexDisabled)
}

func TestSearchDocuments_Unfiltered(t *testing.T) {
	idx := &fakeIndex{docs: []ScoredDocument{
		{ID: "1", Score: 0.9},
		{ID: "2", Score: 0.1},
	}}
	svc := NewService(context.Background(), &fakeEmbedder{vec: []float32{1}}, &fakeGenerator{}, idx, testRAGConfig())

	docs, err := svc.SearchDocuments(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDeleteDocument(t *testing.T) {
	idx := &fakeIndex{}
	svc := NewService(context.Background(), &fakeEmbedder{}, &fakeGenerator{}, idx, testRAGConfig())

	require.NoError(t, svc.DeleteDocument(context.Background(), "doc-9"))
	assert.Equal(t, []string{"doc-9"}, idx.deleted)
}
