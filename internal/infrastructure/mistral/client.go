// Package mistral 提供 Mistral AI 平台客户端
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/pkg/metrics"
)

var tracer = otel.Tracer("mistral")

var (
	// ErrRateLimited 平台返回 429，重试耗尽后仍携带此错误
	ErrRateLimited = errors.New("mistral: rate limited")
	// ErrMissingAPIKey 未配置 API Key
	ErrMissingAPIKey = errors.New("mistral: api key is not configured")
)

// APIError 平台返回的非 2xx（非 429）响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mistral: api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client Mistral API 客户端
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	embedModel string
	httpClient *http.Client
	retry      RetryPolicy
	sleep      sleepFunc
}

// NewClient 创建 Mistral 客户端
func NewClient(cfg *config.MistralConfig, retry RetryPolicy) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "mistral-large-latest"
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = "mistral-embed"
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      model,
		embedModel: embedModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry: retry,
		sleep: sleepContext,
	}
}

// Model 当前对话模型名称
func (c *Client) Model() string {
	return c.model
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Embed 生成文本向量
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "mistral.Embed",
		trace.WithAttributes(attribute.String("model", c.embedModel)))
	defer span.End()

	start := time.Now()
	var resp embedResponse
	err := c.do(ctx, "embed", "/v1/embeddings", &embedRequest{
		Model: c.embedModel,
		Input: []string{text},
	}, &resp)
	c.observe("embed", c.embedModel, start, err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("mistral: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Generate 基于 system + user 消息生成回复
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	ctx, span := tracer.Start(ctx, "mistral.Generate",
		trace.WithAttributes(attribute.String("model", c.model)))
	defer span.End()

	start := time.Now()
	var resp chatResponse
	err := c.do(ctx, "generate", "/v1/chat/completions", &chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}, &resp)
	c.observe("generate", c.model, start, err)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("mistral: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// do 执行请求，仅对 429 做指数退避重试
func (c *Client) do(ctx context.Context, operation, path string, reqBody, out interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		lastErr = c.doOnce(ctx, path, reqBody, out)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrRateLimited) {
			return lastErr
		}
		if attempt == c.retry.MaxAttempts-1 {
			break
		}

		metrics.LLMRetriesTotal.WithLabelValues(operation).Inc()
		if err := c.sleep(ctx, c.retry.Delay(attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("mistral: retries exhausted after %d attempts: %w", c.retry.MaxAttempts, ErrRateLimited)
}

func (c *Client) doOnce(ctx context.Context, path string, reqBody, out interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mistral request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, httpResp.Body)
		return ErrRateLimited
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return &APIError{
			StatusCode: httpResp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(operation, model string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, ErrRateLimited) {
			status = "rate_limited"
		}
	}
	metrics.LLMCallDuration.WithLabelValues(operation, model).Observe(time.Since(start).Seconds())
	metrics.LLMCallTotal.WithLabelValues(operation, model, status).Inc()
}
