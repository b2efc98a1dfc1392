// permq-worker provisions the configured queues and runs the consumer loops
// for the permission backend's domain events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accessio/permq-go/contracts"
	"github.com/accessio/permq-go/health"
	"github.com/accessio/permq-go/internal/config"
	"github.com/accessio/permq-go/internal/reliability"
	"github.com/accessio/permq-go/internal/sqs"
	"github.com/accessio/permq-go/messaging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	client, err := sqs.NewClient(ctx, sqs.ClientOptions{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
	})
	if err != nil {
		fail("sqs client", err)
	}

	registry := sqs.DefaultRegistry()
	urls := sqs.NewURLCache(client, logger.With("component", "url-cache"))

	provisioner := sqs.NewProvisioner(client, registry,
		sqs.WithProvisionerLogger(logger.With("component", "provisioner")))
	if _, err := provisioner.EnsureAll(ctx); err != nil {
		fail("queue provisioning", err)
	}

	if status, _ := health.Run(ctx, health.NewQueueServiceChecker(client, registry, logger)); status != health.StatusHealthy {
		logger.Warn("queue service health degraded at startup", "status", string(status))
	}

	typeRegistry := messaging.NewTypeRegistry()
	for name, prototype := range map[string]contracts.Message{
		"UserCreatedEvent":       &contracts.UserCreatedEvent{},
		"RoleAssignedEvent":      &contracts.RoleAssignedEvent{},
		"TenantProvisionedEvent": &contracts.TenantProvisionedEvent{},
	} {
		if err := typeRegistry.Register(name, prototype); err != nil {
			fail("type registration", err)
		}
	}

	retryPolicy := reliability.NewExponentialBackoff(
		cfg.Retry.InitialInterval,
		cfg.Retry.MaxInterval,
		2.0,
		cfg.Retry.MaxAttempts,
	).WithClassifier(sqs.IsRetryable)

	consumer := messaging.NewConsumer(client, registry, urls, typeRegistry,
		messaging.WithConsumerLogger(logger.With("component", "consumer")),
		messaging.WithConsumerRetryPolicy(retryPolicy),
		messaging.WithMaxMessages(int32(cfg.Consumer.MaxMessages)),
		messaging.WithIdleDelay(cfg.Consumer.IdleDelay),
		messaging.WithErrorDelay(cfg.Consumer.ErrorDelay),
	)

	subscriptions := []struct {
		queue       string
		messageType string
	}{
		{"user-events", "UserCreatedEvent"},
		{"permission-events", "RoleAssignedEvent"},
		{"tenant-events", "TenantProvisionedEvent"},
	}
	for _, sub := range subscriptions {
		err := consumer.StartConsuming(ctx, sub.queue, sub.messageType, loggingHandler(logger))
		if err != nil {
			fail("start consuming", err)
		}
	}

	logger.Info("worker started", "queues", len(subscriptions))

	<-ctx.Done()
	logger.Info("shutdown signal received, draining consumers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := consumer.StopAll(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

// loggingHandler stands in for the domain layer's handlers: real deployments
// register projection and notification handlers here.
func loggingHandler(logger *slog.Logger) messaging.MessageHandler {
	return messaging.MessageHandlerFunc(func(ctx context.Context, msg contracts.Message) error {
		logger.Info("event received",
			"messageId", msg.GetID(),
			"messageType", msg.GetType(),
			"correlationId", msg.GetCorrelationID(),
			"age", time.Since(msg.GetTimestamp()).String(),
		)
		return nil
	})
}

func fail(step string, err error) {
	fmt.Fprintf(os.Stderr, "permq-worker: %s: %v\n", step, err)
	os.Exit(1)
}
