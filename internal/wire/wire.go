//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ai-chatbot-api/internal/application/chat"
	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/internal/infrastructure/persistence/postgres"
	"ai-chatbot-api/internal/infrastructure/persistence/redis"
	"ai-chatbot-api/internal/interfaces/http/handler"
	"ai-chatbot-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		RAGSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeDataLayer 初始化数据层
func InitializeDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		wire.Struct(new(DataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeIndexer 初始化离线索引依赖
func InitializeIndexer(ctx context.Context, cfg *config.Config) (*IndexerDeps, func(), error) {
	wire.Build(
		RepoSet,
		RAGSet,
		wire.Struct(new(IndexerDeps), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewTokenRepository,
	postgres.NewChatSessionRepository,
	postgres.NewMessageRepository,
	postgres.NewDocumentRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.TokenRepository), new(*postgres.TokenRepository)),
	wire.Bind(new(repository.ChatSessionRepository), new(*postgres.ChatSessionRepository)),
	wire.Bind(new(repository.MessageRepository), new(*postgres.MessageRepository)),
	wire.Bind(new(repository.DocumentRepository), new(*postgres.DocumentRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
)

// RAGSet RAG 子系统提供者集合（Milvus/Mistral 缺失时以降级态提供）
var RAGSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMistralClientOptional,
	ProvideRAGService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	chat.NewService,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewChatHandler,
	handler.NewDocumentHandler,
	ProvideRAGHandler,
	ProvideHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
