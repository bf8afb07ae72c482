// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/interfaces/http/dto"
	"ai-chatbot-api/pkg/logger"
)

// DocumentHandler 知识库文档处理器
type DocumentHandler struct {
	ragService *rag.Service
	docRepo    repository.DocumentRepository
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(ragService *rag.Service, docRepo repository.DocumentRepository) *DocumentHandler {
	return &DocumentHandler{
		ragService: ragService,
		docRepo:    docRepo,
	}
}

// AddDocument 入库文档
// @Summary 文档入库
// @Description 向量化文档并写入索引，同时落库一份记录
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body dto.AddDocumentRequest true "文档内容"
// @Success 201 {object} dto.Response[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/documents [post]
func (h *DocumentHandler) AddDocument(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 入库需要向量化与索引两条能力同时在线
	if caps := h.ragService.Capabilities(); !caps.LLMReady || !caps.IndexReady {
		dto.ServiceUnavailable(c, "document indexing is currently unavailable")
		return
	}

	if err := h.ragService.AddDocument(ctx, req.DocID, req.Title, req.Content, req.Metadata); err != nil {
		logger.Error(ctx, "failed to index document", err, "doc_id", req.DocID)
		dto.InternalError(c, "failed to index document")
		return
	}

	var metadata json.RawMessage
	if len(req.Metadata) > 0 {
		data, err := json.Marshal(req.Metadata)
		if err != nil {
			logger.Error(ctx, "failed to encode document metadata", err, "doc_id", req.DocID)
			dto.InternalError(c, "failed to store document")
			return
		}
		metadata = data
	}

	doc := entity.NewDocument(req.DocID, req.Title, req.Content, metadata)
	if err := h.docRepo.Upsert(ctx, doc); err != nil {
		logger.Error(ctx, "failed to store document record", err, "doc_id", req.DocID)
		dto.InternalError(c, "failed to store document")
		return
	}

	dto.Created(c, dto.ToDocumentResponse(doc))
}

// BulkIndex 批量索引
// @Summary 批量索引文档
// @Description 逐条向量化入库，跳过缺少标题或内容的条目，返回成功条数
// @Tags RAG
// @Accept json
// @Produce json
// @Param body body dto.BulkIndexRequest true "文档集合"
// @Success 200 {object} dto.Response[dto.BulkIndexResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/rag/index [post]
func (h *DocumentHandler) BulkIndex(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.BulkIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 入库需要向量化与索引两条能力同时在线
	if caps := h.ragService.Capabilities(); !caps.LLMReady || !caps.IndexReady {
		dto.ServiceUnavailable(c, "document indexing is currently unavailable")
		return
	}

	indexed := 0
	for i := range req.Documents {
		item := req.Documents[i]
		if item.Title == "" || item.Content == "" {
			continue
		}
		docID := item.ID
		if docID == "" {
			docID = uuid.NewString()
		}

		if err := h.ragService.AddDocument(ctx, docID, item.Title, item.Content, item.Metadata); err != nil {
			logger.Warn(ctx, "failed to index document, skipping", "doc_id", docID, "error", err.Error())
			continue
		}

		var metadata json.RawMessage
		if len(item.Metadata) > 0 {
			metadata, _ = json.Marshal(item.Metadata)
		}
		if err := h.docRepo.Upsert(ctx, entity.NewDocument(docID, item.Title, item.Content, metadata)); err != nil {
			logger.Warn(ctx, "failed to store document record", "doc_id", docID, "error", err.Error())
			continue
		}

		indexed++
	}

	dto.Success(c, &dto.BulkIndexResponse{IndexedCount: indexed})
}

// ListDocuments 文档列表
// @Summary 获取文档列表
// @Tags Documents
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.DocumentListResponse]
// @Router /v1/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	result, err := h.docRepo.List(ctx, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list documents", err)
		dto.InternalError(c, "failed to list documents")
		return
	}

	resp := dto.ToDocumentListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// DeleteDocument 删除文档
// @Summary 删除文档
// @Description 同时从向量索引与落库记录中删除
// @Tags Documents
// @Produce json
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{doc_id} [delete]
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	docID := dto.BindDocID(c)

	doc, err := h.docRepo.GetByDocID(ctx, docID)
	if err != nil {
		logger.Error(ctx, "failed to get document", err, "doc_id", docID)
		dto.InternalError(c, "failed to delete document")
		return
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return
	}

	if h.ragService != nil {
		if err := h.ragService.DeleteDocument(ctx, docID); err != nil {
			logger.Error(ctx, "failed to delete document from index", err, "doc_id", docID)
			dto.InternalError(c, "failed to delete document")
			return
		}
	}

	if err := h.docRepo.Delete(ctx, docID); err != nil {
		logger.Error(ctx, "failed to delete document record", err, "doc_id", docID)
		dto.InternalError(c, "failed to delete document")
		return
	}

	dto.NoContent(c)
}
