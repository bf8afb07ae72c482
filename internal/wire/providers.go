// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/infrastructure/messaging"
	"ai-chatbot-api/internal/infrastructure/mistral"
	"ai-chatbot-api/internal/infrastructure/persistence/milvus"
	"ai-chatbot-api/internal/infrastructure/persistence/postgres"
	"ai-chatbot-api/internal/infrastructure/persistence/redis"
	"ai-chatbot-api/internal/interfaces/http/handler"
	"ai-chatbot-api/pkg/logger"
)

// DataLayer 数据层依赖容器（job-worker 等非 HTTP 进程使用）
type DataLayer struct {
	// PostgreSQL
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	UserRepo    *postgres.UserRepository
	TokenRepo   *postgres.TokenRepository
	SessionRepo *postgres.ChatSessionRepository
	MessageRepo *postgres.MessageRepository
	DocRepo     *postgres.DocumentRepository

	// Redis
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter

	// Messaging
	Producer *messaging.Producer
}

// IndexerDeps 离线索引进程依赖容器
type IndexerDeps struct {
	DocRepo    *postgres.DocumentRepository
	RAGService *rag.Service
}

// ProvidePostgresClient 提供 PostgreSQL 客户端并执行结构迁移
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.AutoMigrate(); err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideMilvusClientOptional 提供可选 Milvus 客户端（不可达时不阻塞启动）
func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if cfg.Vector.Milvus.Host == "" {
		logger.Warn(ctx, "milvus not configured, vector features disabled")
		return nil, func() {}, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMistralClientOptional 提供可选 Mistral 客户端（缺少 API Key 时禁用生成与向量化）
func ProvideMistralClientOptional(ctx context.Context, cfg *config.Config) *mistral.Client {
	if cfg.LLM.Mistral.APIKey == "" {
		logger.Warn(ctx, "mistral api key not configured, llm features disabled")
		return nil
	}
	retry := mistral.DefaultRetryPolicy()
	if cfg.RAG.MaxRetries > 0 {
		retry.MaxAttempts = cfg.RAG.MaxRetries
	}
	if cfg.RAG.BaseDelay > 0 {
		retry.BaseDelay = cfg.RAG.BaseDelay
	}
	return mistral.NewClient(&cfg.LLM.Mistral, retry)
}

// ProvideRAGService 组装 RAG 服务，按依赖可用性降级
func ProvideRAGService(ctx context.Context, cfg *config.Config, mistralClient *mistral.Client, milvusClient *milvus.Client) *rag.Service {
	var (
		embedder  rag.Embedder
		generator rag.Generator
		index     rag.VectorIndex
	)
	if mistralClient != nil {
		embedder = mistralClient
		generator = mistralClient
	}
	if milvusClient != nil {
		index = milvus.NewDocumentIndex(milvusClient)
	}
	return rag.NewService(ctx, embedder, generator, index, &cfg.RAG)
}

// ProvideRAGHandler 提供 RAG 处理器
func ProvideRAGHandler(ragService *rag.Service, cfg *config.Config) *handler.RAGHandler {
	return handler.NewRAGHandler(ragService, cfg.LLM.Mistral.Model)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client, ragService *rag.Service) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, redisClient, milvusClient, ragService)
}
