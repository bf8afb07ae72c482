package rag

import "errors"

var (
	// ErrEmptyQuery 查询内容为空
	ErrEmptyQuery = errors.New("query is empty")
	// ErrIndexDisabled 向量索引能力未配置或初始化失败
	ErrIndexDisabled = errors.New("vector index is disabled")
	// ErrEmbedderDisabled 向量化能力未配置
	ErrEmbedderDisabled = errors.New("embedder is disabled")
)
