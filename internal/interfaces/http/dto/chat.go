// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"ai-chatbot-api/internal/application/chat"
	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/domain/entity"
)

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title" binding:"omitempty,max=255"`
}

// UpdateSessionRequest 修改会话请求
type UpdateSessionRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

// PostMessageRequest 会话内提问请求
type PostMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SessionResponse 会话响应
type SessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ToSessionResponse 实体转换为响应
func ToSessionResponse(s *entity.ChatSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
}

// ToSessionListResponse 实体列表转换为响应
func ToSessionListResponse(sessions []*entity.ChatSession) *SessionListResponse {
	items := make([]*SessionResponse, len(sessions))
	for i, s := range sessions {
		items[i] = ToSessionResponse(s)
	}
	return &SessionListResponse{Sessions: items}
}

// MessageResponse 消息响应
type MessageResponse struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// ToMessageResponse 实体转换为响应
func ToMessageResponse(m *entity.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// MessageListResponse 消息历史响应
type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages"`
}

// ToMessageListResponse 实体列表转换为响应
func ToMessageListResponse(messages []*entity.Message) *MessageListResponse {
	items := make([]*MessageResponse, len(messages))
	for i, m := range messages {
		items[i] = ToMessageResponse(m)
	}
	return &MessageListResponse{Messages: items}
}

// OverviewResponse 聊天总览响应
type OverviewResponse struct {
	Sessions       []*SessionResponse `json:"sessions"`
	TotalSessions  int64              `json:"total_sessions"`
	RecentMessages []*MessageResponse `json:"recent_messages"`
}

// ToOverviewResponse 应用层总览转换为响应
func ToOverviewResponse(o *chat.Overview) *OverviewResponse {
	if o == nil {
		return nil
	}
	sessions := make([]*SessionResponse, len(o.Sessions))
	for i, s := range o.Sessions {
		sessions[i] = ToSessionResponse(s)
	}
	messages := make([]*MessageResponse, len(o.RecentMessages))
	for i, m := range o.RecentMessages {
		messages[i] = ToMessageResponse(m)
	}
	return &OverviewResponse{
		Sessions:       sessions,
		TotalSessions:  o.TotalSessions,
		RecentMessages: messages,
	}
}

// AskRequest 提问请求
type AskRequest struct {
	SessionID string `json:"session_id" binding:"omitempty,uuid"`
	Message   string `json:"message" binding:"required"`
}

// AskResponse 提问响应
type AskResponse struct {
	Session           *SessionResponse     `json:"session"`
	UserMessage       *MessageResponse     `json:"user_message"`
	AssistantMessage  *MessageResponse     `json:"assistant_message"`
	RelevantDocuments []rag.ScoredDocument `json:"relevant_documents"`
	ContextUsed       bool                 `json:"context_used"`
	ProcessingTime    float64              `json:"processing_time"`
}

// ToAskResponse 应用层结果转换为响应
func ToAskResponse(r *chat.AskResult) *AskResponse {
	if r == nil {
		return nil
	}
	docs := r.RelevantDocuments
	if docs == nil {
		docs = []rag.ScoredDocument{}
	}
	return &AskResponse{
		Session:           ToSessionResponse(r.Session),
		UserMessage:       ToMessageResponse(r.UserMessage),
		AssistantMessage:  ToMessageResponse(r.AssistantMessage),
		RelevantDocuments: docs,
		ContextUsed:       r.ContextUsed,
		ProcessingTime:    r.ProcessingTime,
	}
}
