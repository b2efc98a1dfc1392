package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/accessio/permq-go/contracts"
	"github.com/accessio/permq-go/internal/reliability"
	"github.com/accessio/permq-go/internal/sqs"
)

// ConsumerHandle is the runtime record for one active polling loop. It is
// owned exclusively by the Consumer's registry.
type ConsumerHandle struct {
	Queue       string
	MessageType string
	URL         string

	cancel context.CancelFunc
	unlink func() bool // detaches the loop from the shutdown context
	done   chan struct{}
}

// Consumer owns one polling loop per registered queue. Each loop long-polls
// for a batch, dispatches every received message concurrently, waits for the
// whole batch, then polls again — bounding in-flight messages to the batch
// size. Success acknowledges by deletion; failure leaves the message for the
// queue service's visibility-timeout redelivery and eventual dead-lettering.
type Consumer struct {
	client      sqs.API
	registry    *sqs.Registry
	urls        *sqs.URLCache
	types       *TypeRegistry
	retryPolicy reliability.RetryPolicy
	logger      *slog.Logger

	handles sync.Map // queue name -> *ConsumerHandle
	wg      sync.WaitGroup

	shutdownCtx context.Context
	shutdown    context.CancelFunc

	maxMessages int32
	idleDelay   time.Duration
	errorDelay  time.Duration
}

// ConsumerOption configures the Consumer
type ConsumerOption func(*Consumer)

// WithConsumerLogger sets the logger
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithConsumerRetryPolicy sets the retry policy applied to handler
// invocations and message deletions
func WithConsumerRetryPolicy(policy reliability.RetryPolicy) ConsumerOption {
	return func(c *Consumer) {
		c.retryPolicy = policy
	}
}

// WithMaxMessages sets the receive batch size (bounded by the service at 10)
func WithMaxMessages(n int32) ConsumerOption {
	return func(c *Consumer) {
		c.maxMessages = n
	}
}

// WithIdleDelay sets the pause after an empty receive
func WithIdleDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.idleDelay = d
	}
}

// WithErrorDelay sets the pause after a failed receive call
func WithErrorDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.errorDelay = d
	}
}

// NewConsumer creates a new consumer runtime
func NewConsumer(client sqs.API, registry *sqs.Registry, urls *sqs.URLCache, typeRegistry *TypeRegistry, options ...ConsumerOption) *Consumer {
	shutdownCtx, shutdown := context.WithCancel(context.Background())

	c := &Consumer{
		client:      client,
		registry:    registry,
		urls:        urls,
		types:       typeRegistry,
		logger:      slog.Default(),
		shutdownCtx: shutdownCtx,
		shutdown:    shutdown,
		maxMessages: 10,
		idleDelay:   time.Second,
		errorDelay:  5 * time.Second,
		retryPolicy: reliability.NewFixedDelay(2*time.Second, 2).
			WithClassifier(sqs.IsRetryable),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

// StartConsuming launches the polling loop for a queue and message type.
// Only one loop per queue name may run in this runtime; a duplicate
// registration is a warned no-op. The loop's lifetime is bound to both the
// caller's context and the process-wide shutdown.
func (c *Consumer) StartConsuming(ctx context.Context, queueName, messageType string, handler MessageHandler) error {
	if queueName == "" {
		return fmt.Errorf("queue name cannot be empty")
	}
	if messageType == "" {
		return fmt.Errorf("message type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if !c.types.IsRegistered(messageType) {
		return fmt.Errorf("message type %s not registered for decoding", messageType)
	}

	cfg, ok := c.registry.Get(queueName)
	if !ok {
		return fmt.Errorf("%w: %s", sqs.ErrQueueNotConfigured, queueName)
	}

	url, err := c.urls.Resolve(ctx, cfg.PhysicalName())
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	handle := &ConsumerHandle{
		Queue:       queueName,
		MessageType: messageType,
		URL:         url,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	handle.unlink = context.AfterFunc(c.shutdownCtx, cancel)

	if _, loaded := c.handles.LoadOrStore(queueName, handle); loaded {
		cancel()
		handle.unlink()
		c.logger.Warn("consumer already running for queue", "queue", queueName)
		return nil
	}

	c.wg.Add(1)
	go c.pollLoop(loopCtx, handle, cfg, handler)

	c.logger.Info("consumer started",
		"queue", queueName,
		"messageType", messageType,
		"url", url,
	)
	return nil
}

// StopConsuming cancels one queue's polling loop and waits for it to finish.
func (c *Consumer) StopConsuming(queueName string) error {
	v, ok := c.handles.LoadAndDelete(queueName)
	if !ok {
		return fmt.Errorf("not consuming from queue: %s", queueName)
	}

	handle := v.(*ConsumerHandle)
	handle.cancel()
	<-handle.done
	handle.unlink()

	c.logger.Info("consumer stopped", "queue", queueName)
	return nil
}

// StopAll cancels every polling loop and waits for outstanding batches to
// drain, then clears the registry. Invoked at process shutdown; ctx bounds
// how long the drain may take.
func (c *Consumer) StopAll(ctx context.Context) error {
	c.shutdown()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out waiting for consumers: %w", ctx.Err())
	}

	c.handles.Range(func(key, _ any) bool {
		c.handles.Delete(key)
		return true
	})

	c.logger.Info("all consumers stopped")
	return nil
}

// pollLoop is the per-queue receive loop. Receive failures are logged and
// retried after a fixed delay; they never terminate the loop.
func (c *Consumer) pollLoop(ctx context.Context, handle *ConsumerHandle, cfg *sqs.QueueConfig, handler MessageHandler) {
	defer c.wg.Done()
	defer close(handle.done)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("polling loop stopped", "queue", handle.Queue, "reason", ctx.Err())
			return
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
			QueueUrl:            aws.String(handle.URL),
			MaxNumberOfMessages: c.maxMessages,
			WaitTimeSeconds:     int32(cfg.ReceiveWaitTimeSeconds),
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("receive failed", "queue", handle.Queue, "error", err)
			if !c.sleep(ctx, c.errorDelay) {
				return
			}
			continue
		}

		if len(out.Messages) == 0 {
			if !c.sleep(ctx, c.idleDelay) {
				return
			}
			continue
		}

		// Dispatch the whole batch concurrently and wait for it before the
		// next receive; in-flight work stays bounded by the batch size.
		var batch sync.WaitGroup
		for _, msg := range out.Messages {
			batch.Add(1)
			go func(m types.Message) {
				defer batch.Done()
				c.dispatch(ctx, handle, handler, m)
			}(msg)
		}
		batch.Wait()
	}
}

// dispatch processes one received message. Malformed messages are deleted
// immediately to avoid a redelivery loop. Handler failures leave the message
// in place: after maxReceiveCount deliveries the queue service routes it to
// the dead-letter queue.
func (c *Consumer) dispatch(ctx context.Context, handle *ConsumerHandle, handler MessageHandler, msg types.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panicked, message left for redelivery",
				"queue", handle.Queue,
				"panic", r,
			)
		}
	}()

	env, err := contracts.ParseEnvelope([]byte(aws.ToString(msg.Body)))
	if err != nil {
		c.logger.Warn("deleting malformed message",
			"queue", handle.Queue,
			"messageId", aws.ToString(msg.MessageId),
			"error", err,
		)
		c.deleteMessage(ctx, handle, msg)
		return
	}

	decoded, err := c.types.Decode(env)
	if err != nil {
		c.logger.Warn("deleting undecodable message",
			"queue", handle.Queue,
			"messageId", env.MessageID,
			"messageType", env.MessageType,
			"error", err,
		)
		c.deleteMessage(ctx, handle, msg)
		return
	}

	err = reliability.Retry(ctx, c.retryPolicy, func() error {
		env.IncrementAttempts()
		return handler.Handle(ctx, decoded)
	})
	if err != nil {
		// No explicit nack: the visibility timeout makes the message
		// receivable again, and the queue service counts deliveries.
		c.logger.Error("handler failed, message left for redelivery",
			"queue", handle.Queue,
			"messageId", env.MessageID,
			"messageType", env.MessageType,
			"localAttempts", env.ProcessingAttempts,
			"receiveCount", msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)],
			"error", err,
		)
		return
	}

	c.deleteMessage(ctx, handle, msg)

	c.logger.Debug("message processed",
		"queue", handle.Queue,
		"messageId", env.MessageID,
		"messageType", env.MessageType,
	)
}

// deleteMessage acknowledges a message by deleting it. A delete that fails
// after retries only means one extra redelivery under at-least-once.
func (c *Consumer) deleteMessage(ctx context.Context, handle *ConsumerHandle, msg types.Message) {
	err := reliability.Retry(ctx, c.retryPolicy, func() error {
		_, delErr := c.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
			QueueUrl:      aws.String(handle.URL),
			ReceiptHandle: msg.ReceiptHandle,
		})
		return delErr
	})
	if err != nil {
		c.logger.Error("failed to delete message, it will be redelivered",
			"queue", handle.Queue,
			"messageId", aws.ToString(msg.MessageId),
			"error", err,
		)
	}
}

// sleep pauses for d or until ctx is cancelled, reporting whether the loop
// should continue.
func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
