// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-chatbot-api/internal/domain/entity"
)

// UserResponse 用户响应
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name *string `json:"name" binding:"omitempty,max=128"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ToUserResponse 实体转换为响应
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		VerifiedAt:  u.VerifiedAt,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ApplyToUser 更新实体
func (r *UpdateUserRequest) ApplyToUser(u *entity.User) {
	if r.Name != nil {
		u.Name = *r.Name
	}
	u.UpdatedAt = time.Now()
}
