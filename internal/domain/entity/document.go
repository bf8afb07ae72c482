// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// Document 知识库文档记录（向量索引的落库侧影）
type Document struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocID     string          `json:"doc_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	Title     string          `json:"title" gorm:"type:varchar(512);not null"`
	Content   string          `json:"content" gorm:"type:text;not null"`
	Metadata  json.RawMessage `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建文档记录
func NewDocument(docID, title, content string, metadata json.RawMessage) *Document {
	now := time.Now()
	return &Document{
		DocID:     docID,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
