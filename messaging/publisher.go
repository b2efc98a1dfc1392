package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/accessio/permq-go/contracts"
	"github.com/accessio/permq-go/internal/reliability"
	"github.com/accessio/permq-go/internal/sqs"
)

// maxBatchSize is the queue service's limit on entries per batched send.
const maxBatchSize = 10

// Publisher sends domain messages into named queues. Every send goes through
// the resilience pipeline; failures that survive the retry budget propagate
// to the caller. There is no local outbox: callers needing durability across
// a process crash must provide it above this layer.
type Publisher struct {
	client         sqs.API
	registry       *sqs.Registry
	urls           *sqs.URLCache
	retryPolicy    reliability.RetryPolicy
	circuitBreaker *reliability.CircuitBreaker
	logger         *slog.Logger
}

// PublisherOption configures the Publisher
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(policy reliability.RetryPolicy) PublisherOption {
	return func(p *Publisher) {
		p.retryPolicy = policy
	}
}

// WithCircuitBreaker sets the circuit breaker
func WithCircuitBreaker(cb *reliability.CircuitBreaker) PublisherOption {
	return func(p *Publisher) {
		p.circuitBreaker = cb
	}
}

// NewPublisher creates a new message publisher
func NewPublisher(client sqs.API, registry *sqs.Registry, urls *sqs.URLCache, options ...PublisherOption) *Publisher {
	p := &Publisher{
		client:   client,
		registry: registry,
		urls:     urls,
		logger:   slog.Default(),
		retryPolicy: reliability.NewExponentialBackoff(time.Second, 30*time.Second, 2.0, 3).
			WithClassifier(sqs.IsRetryable),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish wraps msg in an envelope and sends it to the named queue, returning
// the service-assigned message ID. FIFO queues require PublishOrdered.
func (p *Publisher) Publish(ctx context.Context, msg contracts.Message, queueName string, options ...contracts.EnvelopeOption) (string, error) {
	cfg, url, err := p.resolveQueue(ctx, queueName)
	if err != nil {
		return "", err
	}
	if cfg.IsFifo {
		return "", fmt.Errorf("%w: %s", sqs.ErrFifoQueueRequiresGroup, queueName)
	}

	env, err := contracts.NewEnvelope(msg, options...)
	if err != nil {
		return "", err
	}

	return p.send(ctx, env, queueName, &awssqs.SendMessageInput{
		QueueUrl: aws.String(url),
	})
}

// PublishOrdered sends msg into a FIFO queue under an ordering group. All
// messages sharing a group are delivered strictly in publish order. When
// deduplicationID is empty the envelope's own message ID is used, so two
// logically identical but distinct envelopes are never deduplicated; callers
// needing semantic deduplication must pass an explicit key.
func (p *Publisher) PublishOrdered(ctx context.Context, msg contracts.Message, queueName, groupID, deduplicationID string, options ...contracts.EnvelopeOption) (string, error) {
	if groupID == "" {
		return "", fmt.Errorf("%w: empty group for queue %s", sqs.ErrFifoQueueRequiresGroup, queueName)
	}

	cfg, url, err := p.resolveQueue(ctx, queueName)
	if err != nil {
		return "", err
	}
	if !cfg.IsFifo {
		return "", fmt.Errorf("%w: %s", sqs.ErrNotFifoQueue, queueName)
	}

	env, err := contracts.NewEnvelope(msg, options...)
	if err != nil {
		return "", err
	}
	if deduplicationID == "" {
		deduplicationID = env.MessageID
	}

	return p.send(ctx, env, queueName, &awssqs.SendMessageInput{
		QueueUrl:               aws.String(url),
		MessageGroupId:         aws.String(groupID),
		MessageDeduplicationId: aws.String(deduplicationID),
	})
}

// PublishBatch sends messages in chunks of at most ten per underlying call
// and returns the service-assigned IDs of every message that succeeded.
// A chunk reporting partial failures is logged but does not abort the
// remaining chunks; callers detect partial failure by comparing the returned
// count against the input size. Chunk-level call failures are joined into the
// returned error after every chunk has been attempted.
func (p *Publisher) PublishBatch(ctx context.Context, msgs []contracts.Message, queueName string, options ...contracts.EnvelopeOption) ([]string, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	cfg, url, err := p.resolveQueue(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if cfg.IsFifo {
		return nil, fmt.Errorf("%w: %s", sqs.ErrFifoQueueRequiresGroup, queueName)
	}

	entries := make([]types.SendMessageBatchRequestEntry, 0, len(msgs))
	for i, msg := range msgs {
		env, err := contracts.NewEnvelope(msg, options...)
		if err != nil {
			return nil, err
		}
		body, err := env.Serialize()
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(i)),
			MessageBody: aws.String(string(body)),
		})
	}

	var messageIDs []string
	var chunkErrs []error

	for start := 0; start < len(entries); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]

		var out *awssqs.SendMessageBatchOutput
		err := p.execute(ctx, func() error {
			var sendErr error
			out, sendErr = p.client.SendMessageBatch(ctx, &awssqs.SendMessageBatchInput{
				QueueUrl: aws.String(url),
				Entries:  chunk,
			})
			return sendErr
		})
		if err != nil {
			p.logger.Error("batch chunk failed",
				"queue", queueName,
				"chunkSize", len(chunk),
				"error", err,
			)
			chunkErrs = append(chunkErrs, fmt.Errorf("chunk of %d failed: %w", len(chunk), err))
			continue
		}

		for _, ok := range out.Successful {
			messageIDs = append(messageIDs, aws.ToString(ok.MessageId))
		}
		if len(out.Failed) > 0 {
			p.logger.Warn("batch chunk reported failed entries",
				"queue", queueName,
				"failed", len(out.Failed),
				"succeeded", len(out.Successful),
			)
		}
	}

	p.logger.Debug("batch published",
		"queue", queueName,
		"requested", len(msgs),
		"succeeded", len(messageIDs),
	)

	return messageIDs, joinErrors(chunkErrs)
}

// send serializes the envelope into the prepared input and pushes it through
// the resilience pipeline.
func (p *Publisher) send(ctx context.Context, env *contracts.Envelope, queueName string, input *awssqs.SendMessageInput) (string, error) {
	body, err := env.Serialize()
	if err != nil {
		return "", err
	}
	input.MessageBody = aws.String(string(body))

	var out *awssqs.SendMessageOutput
	err = p.execute(ctx, func() error {
		var sendErr error
		out, sendErr = p.client.SendMessage(ctx, input)
		return sendErr
	})
	if err != nil {
		p.logger.Error("failed to publish message",
			"messageId", env.MessageID,
			"messageType", env.MessageType,
			"queue", queueName,
			"error", err,
		)
		return "", fmt.Errorf("failed to publish message %s: %w", env.MessageID, err)
	}

	p.logger.Debug("message published",
		"messageId", env.MessageID,
		"messageType", env.MessageType,
		"queue", queueName,
	)

	return aws.ToString(out.MessageId), nil
}

// execute applies the circuit breaker (when configured) and the retry policy
// around a queue-service call.
func (p *Publisher) execute(ctx context.Context, fn func() error) error {
	call := fn
	if p.circuitBreaker != nil {
		call = func() error {
			return p.circuitBreaker.Execute(ctx, fn)
		}
	}
	return reliability.Retry(ctx, p.retryPolicy, call)
}

func (p *Publisher) resolveQueue(ctx context.Context, queueName string) (*sqs.QueueConfig, string, error) {
	cfg, ok := p.registry.Get(queueName)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", sqs.ErrQueueNotConfigured, queueName)
	}
	url, err := p.urls.Resolve(ctx, cfg.PhysicalName())
	if err != nil {
		return nil, "", err
	}
	return cfg, url, nil
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("%d batch chunks failed: %v", len(errs), errs)
	}
}
