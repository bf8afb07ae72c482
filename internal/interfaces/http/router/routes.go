// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, authRequired gin.HandlerFunc, h *Handlers) {
	// 认证管理（无需登录态）
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.GET("/verify-email/:token", h.Auth.VerifyEmail)
		auth.POST("/verify-email", h.Auth.VerifyEmail)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
		auth.POST("/password-reset", h.Auth.ForgotPassword)
		auth.POST("/password-reset/confirm", h.Auth.ResetPassword)
	}

	// 用户管理
	users := v1.Group("/users", authRequired)
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me", h.User.UpdateMe)
		users.PUT("/me/password", h.User.ChangePassword)
	}

	// 会话与问答
	chat := v1.Group("/chat", authRequired)
	{
		chat.POST("/ask", h.Chat.Ask)
		chat.GET("/history", h.Chat.Overview)
		chat.GET("/sessions", h.Chat.ListSessions)
		chat.POST("/sessions", h.Chat.CreateSession)
		chat.GET("/sessions/:sid", h.Chat.GetSession)
		chat.PUT("/sessions/:sid", h.Chat.UpdateSession)
		chat.DELETE("/sessions/:sid", h.Chat.DeleteSession)
		chat.GET("/sessions/:sid/messages", h.Chat.History)
		chat.POST("/sessions/:sid/messages", h.Chat.PostMessage)
	}

	// 知识库文档
	documents := v1.Group("/documents", authRequired)
	{
		documents.POST("", h.Document.AddDocument)
		documents.GET("", h.Document.ListDocuments)
		documents.DELETE("/:doc_id", h.Document.DeleteDocument)
	}

	// RAG 子系统
	rag := v1.Group("/rag", authRequired)
	{
		rag.GET("/status", h.RAG.Status)
		rag.POST("/search", h.RAG.Search)
		rag.POST("/index", h.Document.BulkIndex)
	}
}
