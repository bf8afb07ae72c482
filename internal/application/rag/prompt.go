package rag

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a helpful AI assistant. Use the provided context to answer questions accurately."

// 生成失败时的兜底回复，按失败原因区分
const (
	apologyNoService   = "I apologize, but no AI service is available at the moment."
	apologyRateLimited = "I apologize, but I'm having trouble generating a response at the moment due to high demand."
	apologyAPIError    = "I apologize, but I'm having trouble generating a response at the moment."
	apologyGeneric     = "I apologize, but I'm having trouble generating a response at this time."
)

// buildUserPrompt 拼装用户侧 Prompt
func buildUserPrompt(contextBlock, query string) string {
	return fmt.Sprintf(
		"Context: %s\n\nQuestion: %s\n\nPlease provide a helpful and accurate response based on the given context.",
		contextBlock, query,
	)
}

// buildContext 将严格高于相关性阈值的文档拼装为上下文块，恰好等于阈值的不计入。
// 阈值只影响上下文，不影响召回列表本身。
func buildContext(docs []ScoredDocument, threshold float32) string {
	var parts []string
	for _, d := range docs {
		if d.Score > threshold {
			parts = append(parts, fmt.Sprintf("Document: %s\nContent: %s", d.Title, d.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}
