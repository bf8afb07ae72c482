// Package entity 定义领域实体
package entity

import (
	"time"
)

// TokenKind 一次性令牌类型
type TokenKind string

const (
	TokenKindEmailVerify   TokenKind = "email_verify"
	TokenKindPasswordReset TokenKind = "password_reset"
)

// ActionToken 一次性操作令牌（邮箱验证 / 密码重置）
type ActionToken struct {
	ID        string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string     `json:"user_id" gorm:"type:uuid;index;not null"`
	Kind      TokenKind  `json:"kind" gorm:"type:varchar(32);not null"`
	Token     string     `json:"-" gorm:"type:varchar(128);uniqueIndex;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

func (ActionToken) TableName() string {
	return "action_tokens"
}

// NewActionToken 创建操作令牌
func NewActionToken(userID string, kind TokenKind, token string, ttl time.Duration) *ActionToken {
	now := time.Now()
	return &ActionToken{
		UserID:    userID,
		Kind:      kind,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsExpired 令牌是否已过期
func (t *ActionToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed 令牌是否已被消费
func (t *ActionToken) IsUsed() bool {
	return t.UsedAt != nil
}

// MarkUsed 标记令牌已消费
func (t *ActionToken) MarkUsed() {
	now := time.Now()
	t.UsedAt = &now
}
