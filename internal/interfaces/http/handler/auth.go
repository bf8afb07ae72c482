// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/infrastructure/messaging"
	"ai-chatbot-api/internal/interfaces/http/dto"
	"ai-chatbot-api/pkg/errors"
	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/utils"
)

const (
	verifyTokenLength = 32
	verifyTokenTTL    = 24 * time.Hour
	resetTokenLength  = 64
	resetTokenTTL     = time.Hour

	refreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth/refresh"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	jwtCfg     config.JWTConfig
	emailCfg   config.EmailConfig
	appName    string
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	tx         repository.Transactor
	producer   *messaging.Producer
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(
	cfg *config.Config,
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	tx repository.Transactor,
	producer *messaging.Producer,
) *AuthHandler {
	jwtCfg := cfg.Security.JWT
	if jwtCfg.Expiration <= 0 {
		jwtCfg.Expiration = 15 * time.Minute
	}
	if jwtCfg.RefreshExpiration <= 0 {
		jwtCfg.RefreshExpiration = 7 * 24 * time.Hour
	}
	return &AuthHandler{
		jwtManager: utils.NewJWTManager(jwtCfg.Secret, jwtCfg.Issuer),
		jwtCfg:     jwtCfg,
		emailCfg:   cfg.Email,
		appName:    cfg.App.Name,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		tx:         tx,
		producer:   producer,
	}
}

// Register 注册
// @Summary 用户注册
// @Description 创建未激活用户并发送验证邮件，账号在邮箱验证前无法登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.RegisterResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 检查邮箱是否已存在
	exists, err := h.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	// 创建未激活用户
	user := entity.NewUser(req.Email, req.Name)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}

	tokenValue, err := utils.RandomToken(verifyTokenLength)
	if err != nil {
		logger.Error(ctx, "failed to generate verification token", err)
		dto.InternalError(c, "registration failed")
		return
	}

	// 用户与验证令牌在同一事务中落库
	err = h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.userRepo.Create(txCtx, user); err != nil {
			return err
		}
		token := entity.NewActionToken(user.ID, entity.TokenKindEmailVerify, tokenValue, verifyTokenTTL)
		return h.tokenRepo.Create(txCtx, token)
	})
	if err != nil {
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	h.publishVerifyEmail(ctx, user, tokenValue)

	dto.Created(c, &dto.RegisterResponse{
		User:    dto.ToAuthUserDTO(user),
		Message: "verification email sent",
	})
}

// VerifyEmail 验证邮箱
// @Summary 邮箱验证
// @Description 消费验证令牌并激活账号
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.Response[gin.H]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := c.Request.Context()

	// GET /verify-email/:token（邮件链接直接点击）与 POST body 两种形态都支持
	tokenValue := c.Param("token")
	if tokenValue == "" {
		tokenValue = c.Query("token")
	}
	if tokenValue == "" {
		var req dto.VerifyEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			dto.BadRequest(c, "token is required")
			return
		}
		tokenValue = req.Token
	}

	token, err := h.tokenRepo.GetByToken(ctx, tokenValue, entity.TokenKindEmailVerify)
	if err != nil {
		logger.Error(ctx, "failed to get verification token", err)
		dto.InternalError(c, "verification failed")
		return
	}
	if token == nil || token.IsUsed() || token.IsExpired() {
		dto.BadRequest(c, "invalid or expired verification token")
		return
	}

	user, err := h.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "verification failed")
		return
	}
	if user == nil {
		dto.BadRequest(c, "invalid or expired verification token")
		return
	}

	err = h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.tokenRepo.MarkUsed(txCtx, token.ID); err != nil {
			return err
		}
		user.Activate()
		return h.userRepo.Update(txCtx, user)
	})
	if err != nil {
		logger.Error(ctx, "failed to activate user", err)
		dto.InternalError(c, "verification failed")
		return
	}

	dto.Success(c, gin.H{"message": "email verified, you can now log in"})
}

// Login 登录
// @Summary 用户登录
// @Description 验证邮箱密码并返回双 Token，未验证邮箱的账号拒绝登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}

	// 校验存在性及密码
	if user == nil || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	if !user.IsActive {
		dto.FromError(c, errors.New(errors.CodeAccountNotActive, "account is not activated, please verify your email"))
		return
	}

	// 更新登录状态
	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err, "user_id", user.ID)
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email, h.jwtCfg.Expiration, h.jwtCfg.RefreshExpiration)
	if err != nil {
		dto.InternalError(c, "failed to generate tokens")
		return
	}

	// 设置 RefreshToken 到 Cookie
	c.SetCookie(refreshCookieName, tokens.RefreshToken, int(h.jwtCfg.RefreshExpiration.Seconds()), refreshCookiePath, "", false, true)

	dto.Success(c, &dto.AuthResponse{
		AccessToken: tokens.AccessToken,
		ExpiresIn:   int(h.jwtCfg.Expiration.Seconds()),
		User:        dto.ToAuthUserDTO(user),
	})
}

// RefreshToken 刷新 Token
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil {
		dto.Unauthorized(c, "missing refresh token")
		return
	}

	claims, err := h.jwtManager.ParseToken(refreshToken)
	if err != nil || claims.Type != "refresh" {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	newAccessToken, err := h.jwtManager.GenerateToken(claims.UserID, claims.Email, "access", h.jwtCfg.Expiration)
	if err != nil {
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, gin.H{
		"access_token": newAccessToken,
		"expires_in":   int(h.jwtCfg.Expiration.Seconds()),
	})
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", false, true)
	dto.Success(c, gin.H{"message": "logged out success"})
}

// ForgotPassword 找回密码
// 无论邮箱是否存在都返回相同响应，避免账号枚举。
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "request failed")
		return
	}

	if user != nil {
		tokenValue, err := utils.RandomToken(resetTokenLength)
		if err != nil {
			logger.Error(ctx, "failed to generate reset token", err)
			dto.InternalError(c, "request failed")
			return
		}

		// 旧的未消费令牌一并作废，保证同一时刻只有一个有效链接
		err = h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			if err := h.tokenRepo.InvalidateByUser(txCtx, user.ID, entity.TokenKindPasswordReset); err != nil {
				return err
			}
			token := entity.NewActionToken(user.ID, entity.TokenKindPasswordReset, tokenValue, resetTokenTTL)
			return h.tokenRepo.Create(txCtx, token)
		})
		if err != nil {
			logger.Error(ctx, "failed to create reset token", err)
			dto.InternalError(c, "request failed")
			return
		}

		h.publishResetEmail(ctx, user, tokenValue)
	}

	dto.Success(c, gin.H{"message": "if the email exists, a password reset link has been sent"})
}

// ResetPassword 重置密码
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	token, err := h.tokenRepo.GetByToken(ctx, req.Token, entity.TokenKindPasswordReset)
	if err != nil {
		logger.Error(ctx, "failed to get reset token", err)
		dto.InternalError(c, "reset failed")
		return
	}
	if token == nil || token.IsUsed() || token.IsExpired() {
		dto.BadRequest(c, "invalid or expired reset token")
		return
	}

	user, err := h.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "reset failed")
		return
	}
	if user == nil {
		dto.BadRequest(c, "invalid or expired reset token")
		return
	}

	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "reset failed")
		return
	}

	err = h.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.tokenRepo.MarkUsed(txCtx, token.ID); err != nil {
			return err
		}
		if err := h.userRepo.Update(txCtx, user); err != nil {
			return err
		}
		// 同类其余令牌作废，防止旧链接再次改密
		return h.tokenRepo.InvalidateByUser(txCtx, user.ID, entity.TokenKindPasswordReset)
	})
	if err != nil {
		logger.Error(ctx, "failed to reset password", err)
		dto.InternalError(c, "reset failed")
		return
	}

	dto.Success(c, gin.H{"message": "password has been reset"})
}

// publishVerifyEmail 投递验证邮件任务，失败不阻断注册流程
func (h *AuthHandler) publishVerifyEmail(ctx context.Context, user *entity.User, token string) {
	if h.producer == nil {
		logger.Warn(ctx, "email producer not configured, skipping verification email", "user_id", user.ID)
		return
	}

	link := fmt.Sprintf("%s?token=%s", h.emailCfg.VerifyBaseURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nWelcome to %s. Please verify your email address by opening the link below:\n\n%s\n\nThe link expires in 24 hours.\n",
		user.Name, h.appName, link,
	)

	_, err := h.producer.PublishEmail(ctx, &messaging.EmailMessage{
		To:      user.Email,
		Subject: fmt.Sprintf("[%s] Verify your email", h.appName),
		Body:    body,
		Kind:    messaging.EmailKindVerify,
		UserID:  user.ID,
	})
	if err != nil {
		logger.Error(ctx, "failed to publish verification email", err, "user_id", user.ID)
	}
}

// publishResetEmail 投递重置密码邮件任务
func (h *AuthHandler) publishResetEmail(ctx context.Context, user *entity.User, token string) {
	if h.producer == nil {
		logger.Warn(ctx, "email producer not configured, skipping reset email", "user_id", user.ID)
		return
	}

	link := fmt.Sprintf("%s?token=%s", h.emailCfg.ResetBaseURL, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n\nThe link expires in 1 hour. If you did not request this, you can ignore this email.\n",
		user.Name, link,
	)

	_, err := h.producer.PublishEmail(ctx, &messaging.EmailMessage{
		To:      user.Email,
		Subject: fmt.Sprintf("[%s] Reset your password", h.appName),
		Body:    body,
		Kind:    messaging.EmailKindReset,
		UserID:  user.ID,
	})
	if err != nil {
		logger.Error(ctx, "failed to publish reset email", err, "user_id", user.ID)
	}
}
