// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/interfaces/http/dto"
	"ai-chatbot-api/pkg/logger"
)

// RAGHandler RAG 子系统处理器
type RAGHandler struct {
	ragService *rag.Service
	model      string
}

// NewRAGHandler 创建 RAG 处理器
func NewRAGHandler(ragService *rag.Service, model string) *RAGHandler {
	return &RAGHandler{
		ragService: ragService,
		model:      model,
	}
}

// Status RAG 子系统状态
// @Summary 获取 RAG 子系统状态
// @Tags RAG
// @Produce json
// @Success 200 {object} dto.Response[dto.RAGStatusResponse]
// @Router /v1/rag/status [get]
func (h *RAGHandler) Status(c *gin.Context) {
	resp := &dto.RAGStatusResponse{}
	if h.ragService != nil {
		caps := h.ragService.Capabilities()
		resp.Enabled = h.ragService.Available()
		resp.LLMReady = caps.LLMReady
		resp.IndexReady = caps.IndexReady
		resp.Model = h.model
	}
	dto.Success(c, resp)
}

// Search 向量检索调试
// @Summary 向量检索
// @Description 对索引执行一次相似度检索，返回不经阈值过滤的结果
// @Tags RAG
// @Accept json
// @Produce json
// @Param body body dto.SearchRequest true "检索条件"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/rag/search [post]
func (h *RAGHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 检索需要向量化与索引两条能力同时在线
	if caps := h.ragService.Capabilities(); !caps.LLMReady || !caps.IndexReady {
		dto.ServiceUnavailable(c, "search is currently unavailable")
		return
	}

	docs, err := h.ragService.SearchDocuments(ctx, req.Query, req.TopK)
	if err != nil {
		logger.Error(ctx, "failed to search documents", err)
		dto.InternalError(c, "search failed")
		return
	}
	if docs == nil {
		docs = []rag.ScoredDocument{}
	}

	dto.Success(c, &dto.SearchResponse{Documents: docs})
}
