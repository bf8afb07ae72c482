// Package email 提供 SMTP 邮件发送实现
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/internal/config"
)

var tracer = otel.Tracer("email")

// Sender SMTP 邮件发送器
type Sender struct {
	config *config.SMTPConfig
}

// NewSender 创建邮件发送器
func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{config: cfg}
}

// Send 发送邮件
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	_, span := tracer.Start(ctx, "email.Send",
		trace.WithAttributes(attribute.String("email.to", to)))
	defer span.End()

	if s.config.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var msg strings.Builder
	msg.WriteString("From: " + s.config.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg.String())); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
