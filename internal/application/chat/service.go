// Package chat 实现会话管理与基于 RAG 的问答编排。
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/infrastructure/persistence/redis"
	"ai-chatbot-api/pkg/errors"
	"ai-chatbot-api/pkg/logger"
)

var tracer = otel.Tracer("chat")

const (
	// sessionTitleMaxRunes 会话标题取自首条消息的前缀长度
	sessionTitleMaxRunes = 50

	defaultSessionTitle = "New Chat"

	historyCacheTTL  = 5 * time.Minute
	listCacheTTL     = time.Minute
	overviewCacheTTL = 30 * time.Second

	// overviewSessionLimit 总览返回的会话上限
	overviewSessionLimit = 20
	// overviewMessageLimit 总览返回的最近消息上限
	overviewMessageLimit = 10

	// unavailableResponse RAG 服务整体不可用时的兜底回复
	unavailableResponse = "I'm sorry, the AI service is currently unavailable."
)

// Service 会话与问答服务
type Service struct {
	sessions repository.ChatSessionRepository
	messages repository.MessageRepository
	tx       repository.Transactor
	cache    *redis.Cache
	rag      *rag.Service
}

// NewService 创建会话服务
func NewService(
	sessions repository.ChatSessionRepository,
	messages repository.MessageRepository,
	tx repository.Transactor,
	cache *redis.Cache,
	ragService *rag.Service,
) *Service {
	return &Service{
		sessions: sessions,
		messages: messages,
		tx:       tx,
		cache:    cache,
		rag:      ragService,
	}
}

// AskResult 一次问答的完整结果
type AskResult struct {
	Session           *entity.ChatSession
	UserMessage       *entity.Message
	AssistantMessage  *entity.Message
	RelevantDocuments []rag.ScoredDocument
	ContextUsed       bool
	ProcessingTime    float64
}

// messageMetadata 助手消息的落库元数据
type messageMetadata struct {
	ProcessingTime    float64 `json:"processing_time"`
	RelevantDocsCount int     `json:"relevant_docs_count"`
	ContextUsed       bool    `json:"context_used"`
}

// sessionTitle 从首条消息推导会话标题
func sessionTitle(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return defaultSessionTitle
	}
	runes := []rune(message)
	if len(runes) <= sessionTitleMaxRunes {
		return message
	}
	return string(runes[:sessionTitleMaxRunes]) + "..."
}

// Ask 处理一次提问：定位或创建会话，执行 RAG 查询，落库两条消息。
// sessionID 为空时新建会话，标题取自提问前缀。
func (s *Service) Ask(ctx context.Context, userID, sessionID, question string) (*AskResult, error) {
	ctx, span := tracer.Start(ctx, "chat.Ask",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New(errors.CodeInvalidParam, "message is empty")
	}

	// 定位或创建会话
	var session *entity.ChatSession
	if sessionID != "" {
		existing, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.New(errors.CodeSessionNotFound, "session not found")
		}
		if existing.UserID != userID {
			return nil, errors.New(errors.CodeForbidden, "session belongs to another user")
		}
		session = existing
	} else {
		session = entity.NewChatSession(userID, sessionTitle(question))
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
	}

	// 执行 RAG 查询；服务不可用时降级为固定回复
	start := time.Now()
	var (
		response    string
		docs        []rag.ScoredDocument
		contextUsed bool
	)
	if s.rag != nil && s.rag.Available() {
		result, err := s.rag.ProcessQuery(ctx, question)
		if err != nil {
			return nil, err
		}
		response = result.Response
		docs = result.RelevantDocuments
		contextUsed = result.ContextUsed
	} else {
		response = unavailableResponse
		docs = []rag.ScoredDocument{}
	}
	processingTime := time.Since(start).Seconds()

	meta, err := json.Marshal(messageMetadata{
		ProcessingTime:    processingTime,
		RelevantDocsCount: len(docs),
		ContextUsed:       contextUsed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message metadata: %w", err)
	}

	userMsg := entity.NewMessage(session.ID, entity.RoleUser, question, nil)
	assistantMsg := entity.NewMessage(session.ID, entity.RoleAssistant, response, meta)

	// 两条消息与会话更新时间在同一事务中落库
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.messages.Create(txCtx, userMsg); err != nil {
			return err
		}
		if err := s.messages.Create(txCtx, assistantMsg); err != nil {
			return err
		}
		session.UpdatedAt = time.Now()
		return s.sessions.Update(txCtx, session)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx, userID, session.ID)

	span.SetAttributes(
		attribute.Bool("chat.context_used", contextUsed),
		attribute.Int("chat.relevant_docs", len(docs)),
	)

	return &AskResult{
		Session:           session,
		UserMessage:       userMsg,
		AssistantMessage:  assistantMsg,
		RelevantDocuments: docs,
		ContextUsed:       contextUsed,
		ProcessingTime:    processingTime,
	}, nil
}

// CreateSession 创建空会话
func (s *Service) CreateSession(ctx context.Context, userID, title string) (*entity.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}

	session := entity.NewChatSession(userID, title)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.invalidateUserList(ctx, userID)
	return session, nil
}

// GetSession 获取会话（校验归属）
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*entity.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New(errors.CodeSessionNotFound, "session not found")
	}
	if session.UserID != userID {
		return nil, errors.New(errors.CodeForbidden, "session belongs to another user")
	}
	return session, nil
}

// ListSessions 获取用户会话列表（Redis 缓存兜底直查）
func (s *Service) ListSessions(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.ChatSession], error) {
	if s.cache == nil {
		return s.sessions.ListByUser(ctx, userID, pagination)
	}

	key := redis.BuildSessionListKey(userID, pagination.Page, pagination.PageSize)
	data, err := s.cache.GetOrLoadSafe(ctx, key, listCacheTTL, func() (interface{}, error) {
		return s.sessions.ListByUser(ctx, userID, pagination)
	})
	if err != nil {
		logger.Warn(ctx, "session list cache unavailable, querying directly", "error", err)
		return s.sessions.ListByUser(ctx, userID, pagination)
	}

	var result repository.PagedResult[*entity.ChatSession]
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached session list: %w", err)
	}
	return &result, nil
}

// RenameSession 修改会话标题（校验归属）
func (s *Service) RenameSession(ctx context.Context, userID, sessionID, title string) (*entity.ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New(errors.CodeInvalidParam, "title is empty")
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	session.Title = title
	session.UpdatedAt = time.Now()
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	s.invalidateUserList(ctx, userID)
	return session, nil
}

// Overview 用户聊天总览
type Overview struct {
	Sessions       []*entity.ChatSession `json:"sessions"`
	TotalSessions  int64                 `json:"total_sessions"`
	RecentMessages []*entity.Message     `json:"recent_messages"`
}

// GetOverview 获取聊天总览：最近会话列表与最新会话的最近消息。
// 结果经 Redis read-through 短 TTL 缓存。
func (s *Service) GetOverview(ctx context.Context, userID string) (*Overview, error) {
	ctx, span := tracer.Start(ctx, "chat.GetOverview")
	defer span.End()

	if s.cache == nil {
		return s.loadOverview(ctx, userID)
	}

	key := redis.BuildOverviewKey(userID)
	data, err := s.cache.GetOrLoadSafe(ctx, key, overviewCacheTTL, func() (interface{}, error) {
		return s.loadOverview(ctx, userID)
	})
	if err != nil {
		logger.Warn(ctx, "overview cache unavailable, querying directly", "error", err)
		return s.loadOverview(ctx, userID)
	}

	var overview Overview
	if err := json.Unmarshal(data, &overview); err != nil {
		return nil, fmt.Errorf("failed to decode cached overview: %w", err)
	}
	return &overview, nil
}

func (s *Service) loadOverview(ctx context.Context, userID string) (*Overview, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, repository.NewPagination(1, overviewSessionLimit))
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		Sessions:       sessions.Items,
		TotalSessions:  sessions.Total,
		RecentMessages: []*entity.Message{},
	}
	if len(sessions.Items) > 0 {
		recent, err := s.messages.ListRecentBySession(ctx, sessions.Items[0].ID, overviewMessageLimit)
		if err != nil {
			return nil, err
		}
		overview.RecentMessages = recent
	}
	return overview, nil
}

// DeleteSession 删除会话及其全部消息
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.messages.DeleteBySession(txCtx, sessionID); err != nil {
			return err
		}
		return s.sessions.Delete(txCtx, sessionID)
	})
	if err != nil {
		return err
	}

	s.invalidateCaches(ctx, userID, sessionID)
	return nil
}

// History 获取会话消息历史（Redis 缓存兜底直查）
func (s *Service) History(ctx context.Context, userID, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Message], error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	if s.cache == nil {
		return s.messages.ListBySession(ctx, sessionID, pagination)
	}

	key := redis.BuildHistoryKey(sessionID, pagination.Page, pagination.PageSize)
	data, err := s.cache.GetOrLoadSafe(ctx, key, historyCacheTTL, func() (interface{}, error) {
		return s.messages.ListBySession(ctx, sessionID, pagination)
	})
	if err != nil {
		logger.Warn(ctx, "history cache unavailable, querying directly", "error", err)
		return s.messages.ListBySession(ctx, sessionID, pagination)
	}

	var result repository.PagedResult[*entity.Message]
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached history: %w", err)
	}
	return &result, nil
}

func (s *Service) invalidateCaches(ctx context.Context, userID, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSession(ctx, sessionID); err != nil {
		logger.Warn(ctx, "failed to invalidate history cache", "error", err, "session_id", sessionID)
	}
	s.invalidateUserList(ctx, userID)
}

func (s *Service) invalidateUserList(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUserSessions(ctx, userID); err != nil {
		logger.Warn(ctx, "failed to invalidate session list cache", "error", err, "user_id", userID)
	}
}
