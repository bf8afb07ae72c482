// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-chatbot-api/internal/application/chat"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/interfaces/http/dto"
	"ai-chatbot-api/internal/interfaces/http/middleware"
	"ai-chatbot-api/pkg/errors"
	"ai-chatbot-api/pkg/logger"
)

// ChatHandler 会话与问答处理器
type ChatHandler struct {
	chatService *chat.Service
}

// NewChatHandler 创建会话处理器
func NewChatHandler(chatService *chat.Service) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Ask 提问
// @Summary 提问
// @Description 在指定会话（缺省则新建）中执行一次 RAG 问答
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "提问内容"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/ask [post]
func (h *ChatHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.chatService.Ask(ctx, userID, req.SessionID, req.Message)
	if err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "failed to process question", err)
		}
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToAskResponse(result))
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "会话信息"
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/chat/sessions [post]
func (h *ChatHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.chatService.CreateSession(ctx, userID, req.Title)
	if err != nil {
		logger.Error(ctx, "failed to create session", err)
		dto.FromError(c, err)
		return
	}

	dto.Created(c, dto.ToSessionResponse(session))
}

// ListSessions 会话列表
// @Summary 获取会话列表
// @Tags Chat
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.SessionListResponse]
// @Router /v1/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	pageReq := dto.BindPage(c)

	result, err := h.chatService.ListSessions(ctx, userID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list sessions", err)
		dto.FromError(c, err)
		return
	}

	resp := dto.ToSessionListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetSession 获取会话
// @Summary 获取会话详情
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/sessions/{sid} [get]
func (h *ChatHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	session, err := h.chatService.GetSession(ctx, userID, sessionID)
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToSessionResponse(session))
}

// UpdateSession 修改会话
// @Summary 修改会话标题
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.UpdateSessionRequest true "会话信息"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/sessions/{sid} [put]
func (h *ChatHandler) UpdateSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.chatService.RenameSession(ctx, userID, sessionID, req.Title)
	if err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "failed to update session", err)
		}
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToSessionResponse(session))
}

// DeleteSession 删除会话
// @Summary 删除会话及其全部消息
// @Tags Chat
// @Produce json
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/sessions/{sid} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	if err := h.chatService.DeleteSession(ctx, userID, sessionID); err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "failed to delete session", err)
		}
		dto.FromError(c, err)
		return
	}

	dto.NoContent(c)
}

// PostMessage 会话内提问
// @Summary 在已有会话中提问
// @Description 存储用户消息并执行 RAG 问答，返回完整问答结果
// @Tags Chat
// @Accept json
// @Produce json
// @Param body body dto.PostMessageRequest true "提问内容"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/sessions/{sid}/messages [post]
func (h *ChatHandler) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.chatService.Ask(ctx, userID, sessionID, req.Message)
	if err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "failed to process question", err)
		}
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToAskResponse(result))
}

// Overview 聊天总览
// @Summary 获取聊天总览
// @Description 返回最近会话列表与最新会话的最近消息
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.Response[dto.OverviewResponse]
// @Router /v1/chat/history [get]
func (h *ChatHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	overview, err := h.chatService.GetOverview(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get chat overview", err)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToOverviewResponse(overview))
}

// History 会话消息历史
// @Summary 获取会话消息历史
// @Tags Chat
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.MessageListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/chat/sessions/{sid}/messages [get]
func (h *ChatHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)
	pageReq := dto.BindPage(c)

	result, err := h.chatService.History(ctx, userID, sessionID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		if !errors.IsAppError(err) {
			logger.Error(ctx, "failed to get history", err)
		}
		dto.FromError(c, err)
		return
	}

	resp := dto.ToMessageListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}
