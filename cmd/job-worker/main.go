// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/infrastructure/email"
	"ai-chatbot-api/internal/infrastructure/messaging"
	"ai-chatbot-api/internal/jobs"
	"ai-chatbot-api/internal/wire"
	"ai-chatbot-api/pkg/logger"
	"ai-chatbot-api/pkg/metrics"
	"ai-chatbot-api/pkg/tracer"

	"github.com/joho/godotenv"
)

const dlqAlertThreshold = 10

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	data, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize data layer", err)
	}
	defer cleanup()

	sender := email.NewSender(&cfg.Email.SMTP)

	consumer := messaging.NewConsumer(data.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamEmailSend,
		Group:         messaging.ConsumerGroupEmailSender,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  cfg.Messaging.RedisStream.BlockTimeout,
		ClaimInterval: cfg.Messaging.RedisStream.ClaimInterval,
		RetryLimit:    cfg.Messaging.RedisStream.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    cfg.Messaging.RedisStream.RetryBackoff.Initial,
			Max:        cfg.Messaging.RedisStream.RetryBackoff.Max,
			Multiplier: cfg.Messaging.RedisStream.RetryBackoff.Multiplier,
		},
	})

	consumer.RegisterHandler("email_send", func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.EmailMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}

		if err := sender.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			metrics.EmailsSentTotal.WithLabelValues(string(payload.Kind), "error").Inc()
			return err
		}
		metrics.EmailsSentTotal.WithLabelValues(string(payload.Kind), "success").Inc()
		return nil
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	tasks := jobs.NewTasks(
		data.UserRepo,
		data.SessionRepo,
		data.MessageRepo,
		data.TokenRepo,
		data.DocRepo,
		data.Producer,
		cfg,
	)
	scheduler := jobs.NewScheduler()
	tasks.RegisterAll(scheduler)
	scheduler.Start(ctx)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "consumer", hostnameConsumerName())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	scheduler.Stop()
	consumer.Stop()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
