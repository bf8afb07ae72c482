package rag

// IndexedDocument 写入向量索引的文档
type IndexedDocument struct {
	ID       string
	Vector   []float32
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// ScoredDocument 召回结果文档
type ScoredDocument struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueryResult 一次 RAG 查询的完整结果。
// RelevantDocuments 为未过滤的召回列表；相关性阈值只作用于上下文拼装。
type QueryResult struct {
	Response          string           `json:"response"`
	RelevantDocuments []ScoredDocument `json:"relevant_documents"`
	ContextUsed       bool             `json:"context_used"`
}

// Capabilities 服务能力快照
type Capabilities struct {
	LLMReady   bool `json:"llm_ready"`
	IndexReady bool `json:"index_ready"`
}
