package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/infrastructure/messaging"
	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/metrics"
)

const (
	defaultHistoryRetentionDays = 30
	backupPageSize              = 100
)

// Tasks 后台任务集合
type Tasks struct {
	users     repository.UserRepository
	sessions  repository.ChatSessionRepository
	messages  repository.MessageRepository
	tokens    repository.TokenRepository
	documents repository.DocumentRepository
	producer  *messaging.Producer
	config    *config.Config
}

// NewTasks 创建后台任务集合
func NewTasks(
	users repository.UserRepository,
	sessions repository.ChatSessionRepository,
	messages repository.MessageRepository,
	tokens repository.TokenRepository,
	documents repository.DocumentRepository,
	producer *messaging.Producer,
	cfg *config.Config,
) *Tasks {
	return &Tasks{
		users:     users,
		sessions:  sessions,
		messages:  messages,
		tokens:    tokens,
		documents: documents,
		producer:  producer,
		config:    cfg,
	}
}

// RegisterAll 把全部定时任务挂到调度器上
func (t *Tasks) RegisterAll(s *Scheduler) {
	s.Register(Job{Name: "history_cleanup", Schedule: DailyAt(2, 0), Run: t.CleanupHistory})
	s.Register(Job{Name: "token_cleanup", Schedule: DailyAt(3, 0), Run: t.CleanupTokens})
	s.Register(Job{Name: "daily_report", Schedule: DailyAt(8, 0), Run: t.SendDailyReport})
	s.Register(Job{Name: "weekly_backup", Schedule: WeeklyAt(time.Sunday, 1, 0), Run: t.BackupDocuments})
	s.Register(Job{Name: "session_gauge", Schedule: Every(time.Minute), Run: t.RefreshSessionGauge})
}

// CleanupHistory 删除超出保留期的消息记录
func (t *Tasks) CleanupHistory(ctx context.Context) error {
	retentionDays := t.config.Jobs.HistoryRetentionDays
	if retentionDays <= 0 {
		retentionDays = defaultHistoryRetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := t.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired messages: %w", err)
	}

	// 清理只剩空壳的旧会话
	emptied, err := t.sessions.DeleteEmpty(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete empty sessions: %w", err)
	}

	logger.Info(ctx, "history cleanup finished",
		"deleted_messages", deleted,
		"deleted_sessions", emptied,
		"cutoff", cutoff.Format(time.RFC3339),
	)
	return nil
}

// CleanupTokens 删除已过期的一次性令牌
func (t *Tasks) CleanupTokens(ctx context.Context) error {
	deleted, err := t.tokens.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	logger.Info(ctx, "token cleanup finished", "deleted", deleted)
	return nil
}

// SendDailyReport 汇总运行数据并投递给管理员邮箱
func (t *Tasks) SendDailyReport(ctx context.Context) error {
	adminAddress := t.config.Email.AdminAddress
	if adminAddress == "" {
		logger.Warn(ctx, "daily report skipped, admin address is not configured")
		return nil
	}

	activeUsers, err := t.users.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to count active users: %w", err)
	}

	activeSessions, err := t.sessions.CountActiveSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to count active sessions: %w", err)
	}

	documentCount, err := t.documents.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	now := time.Now()
	body := fmt.Sprintf(
		"Daily Report - %s\n\nActive users: %d\nSessions active in the last 24h: %d\nIndexed documents: %d\n",
		now.Format("2006-01-02"), activeUsers, activeSessions, documentCount,
	)

	_, err = t.producer.PublishEmail(ctx, &messaging.EmailMessage{
		To:      adminAddress,
		Subject: fmt.Sprintf("[%s] Daily Report %s", t.config.App.Name, now.Format("2006-01-02")),
		Body:    body,
		Kind:    messaging.EmailKindReport,
	})
	if err != nil {
		return fmt.Errorf("failed to publish daily report: %w", err)
	}
	return nil
}

// backupDocument 备份文件中的单条文档记录
type backupDocument struct {
	DocID    string          `json:"doc_id"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// BackupDocuments 把全部文档记录导出为 JSON 备份文件
func (t *Tasks) BackupDocuments(ctx context.Context) error {
	backupDir := t.config.Jobs.BackupDir
	if backupDir == "" {
		logger.Warn(ctx, "weekly backup skipped, backup dir is not configured")
		return nil
	}

	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	var docs []backupDocument
	for page := 1; ; page++ {
		result, err := t.documents.List(ctx, repository.NewPagination(page, backupPageSize))
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		for _, doc := range result.Items {
			docs = append(docs, backupDocument{
				DocID:    doc.DocID,
				Title:    doc.Title,
				Content:  doc.Content,
				Metadata: doc.Metadata,
			})
		}
		if int64(page*backupPageSize) >= result.Total || len(result.Items) == 0 {
			break
		}
	}

	data, err := json.MarshalIndent(map[string]interface{}{
		"created_at": time.Now().Format(time.RFC3339),
		"count":      len(docs),
		"documents":  docs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	path := filepath.Join(backupDir, fmt.Sprintf("documents-%s.json", time.Now().Format("20060102")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	logger.Info(ctx, "weekly backup finished", "path", path, "documents", len(docs))
	return nil
}

// RefreshSessionGauge 刷新近一小时活跃会话数指标
func (t *Tasks) RefreshSessionGauge(ctx context.Context) error {
	count, err := t.sessions.CountActiveSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("failed to count active sessions: %w", err)
	}
	metrics.ActiveSessions.Set(float64(count))
	return nil
}
