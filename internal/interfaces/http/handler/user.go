// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/interfaces/http/dto"
	"ai-chatbot-api/internal/interfaces/http/middleware"
	"ai-chatbot-api/pkg/logger"
)

// UserHandler 用户处理器
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
	}
}

// GetMe 获取当前用户信息
// @Summary 获取当前用户信息
// @Description 获取登录用户的详细资料
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user info")
		return
	}

	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// UpdateMe 更新当前用户信息
// @Summary 更新当前用户信息
// @Description 修改当前登录用户的昵称
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpdateUserRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to get user info")
		return
	}

	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	req.ApplyToUser(user)

	if err := h.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to update user", err)
		dto.InternalError(c, "failed to update user info")
		return
	}

	dto.Success(c, dto.ToUserResponse(user))
}

// ChangePassword 修改当前用户密码
// @Summary 修改密码
// @Description 校验旧密码后更新为新密码
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.ChangePasswordRequest true "密码信息"
// @Success 200 {object} dto.Response[gin.H]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/users/me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "failed to change password")
		return
	}

	if user == nil {
		dto.NotFound(c, "user not found")
		return
	}

	if !user.CheckPassword(req.OldPassword) {
		dto.Unauthorized(c, "old password is incorrect")
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "failed to change password")
		return
	}

	if err := h.userRepo.Update(ctx, user); err != nil {
		logger.Error(ctx, "failed to update user", err)
		dto.InternalError(c, "failed to change password")
		return
	}

	dto.Success(c, gin.H{"message": "password changed"})
}
