package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// QueueInfo is the resolved result of provisioning one queue.
type QueueInfo struct {
	Name         string // logical name
	PhysicalName string
	URL          string
	ARN          string
}

// Provisioner idempotently creates queues and wires redrive policies between
// primaries and their dead-letter queues. Provisioning failures are fatal and
// surface to the caller.
type Provisioner struct {
	client   API
	registry *Registry
	logger   *slog.Logger
}

// ProvisionerOption configures the Provisioner
type ProvisionerOption func(*Provisioner)

// WithProvisionerLogger sets the logger
func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// NewProvisioner creates a new queue provisioner
func NewProvisioner(client API, registry *Registry, options ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		client:   client,
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// EnsureQueue makes sure the logical queue and its dead-letter queue exist,
// creating them if needed. Calling it for an existing queue returns the
// resolved info without mutation.
func (p *Provisioner) EnsureQueue(ctx context.Context, logicalName string) (*QueueInfo, error) {
	cfg, ok := p.registry.Get(logicalName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueueNotConfigured, logicalName)
	}
	return p.ensure(ctx, cfg)
}

// EnsureAll provisions every queue in the registry.
func (p *Provisioner) EnsureAll(ctx context.Context) (map[string]*QueueInfo, error) {
	infos := make(map[string]*QueueInfo)
	for _, cfg := range p.registry.All() {
		info, err := p.ensure(ctx, cfg)
		if err != nil {
			return nil, err
		}
		infos[cfg.Name] = info
	}
	return infos, nil
}

// DeleteQueue deletes a provisioned queue. Deleting a queue that does not
// exist is a warned no-op, not an error.
func (p *Provisioner) DeleteQueue(ctx context.Context, logicalName string) error {
	cfg, ok := p.registry.Get(logicalName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrQueueNotConfigured, logicalName)
	}

	physical := cfg.PhysicalName()
	url, err := p.lookupURL(ctx, physical)
	if err != nil {
		if IsQueueMissing(err) {
			p.logger.Warn("delete skipped, queue does not exist", "queue", physical)
			return nil
		}
		return &ProvisionError{Queue: logicalName, Op: "delete", Err: err}
	}

	if _, err := p.client.DeleteQueue(ctx, &awssqs.DeleteQueueInput{QueueUrl: aws.String(url)}); err != nil {
		if IsQueueMissing(err) {
			p.logger.Warn("delete skipped, queue does not exist", "queue", physical)
			return nil
		}
		return &ProvisionError{Queue: logicalName, Op: "delete", Err: err}
	}

	p.logger.Info("queue deleted", "queue", physical)
	return nil
}

// ensure provisions one queue: DLQ first, then the primary, then the redrive
// policy linking them.
func (p *Provisioner) ensure(ctx context.Context, cfg *QueueConfig) (*QueueInfo, error) {
	var dlqInfo *QueueInfo
	if cfg.DeadLetterQueue != nil {
		var err error
		dlqInfo, err = p.ensure(ctx, cfg.DeadLetterQueue)
		if err != nil {
			return nil, err
		}
	}

	physical := cfg.PhysicalName()
	url, err := p.lookupURL(ctx, physical)
	switch {
	case err == nil:
		// Queue already exists; idempotent return, no mutation.
		arn, err := p.queueARN(ctx, url)
		if err != nil {
			return nil, &ProvisionError{Queue: cfg.Name, Op: "describe", Err: err}
		}
		p.logger.Debug("queue already provisioned", "queue", physical, "url", url)
		return &QueueInfo{Name: cfg.Name, PhysicalName: physical, URL: url, ARN: arn}, nil

	case IsQueueMissing(err):
		// Fall through to creation.

	default:
		return nil, &ProvisionError{Queue: cfg.Name, Op: "lookup", Err: err}
	}

	out, err := p.client.CreateQueue(ctx, &awssqs.CreateQueueInput{
		QueueName:  aws.String(physical),
		Attributes: p.queueAttributes(cfg),
	})
	if err != nil {
		return nil, &ProvisionError{Queue: cfg.Name, Op: "create", Err: err}
	}
	url = aws.ToString(out.QueueUrl)

	arn, err := p.queueARN(ctx, url)
	if err != nil {
		return nil, &ProvisionError{Queue: cfg.Name, Op: "describe", Err: err}
	}

	if dlqInfo != nil {
		if err := p.attachRedrivePolicy(ctx, url, dlqInfo.ARN, cfg.MaxReceiveCount); err != nil {
			return nil, &ProvisionError{Queue: cfg.Name, Op: "redrive", Err: err}
		}
	}

	p.logger.Info("queue provisioned",
		"queue", physical,
		"url", url,
		"fifo", cfg.IsFifo,
		"deadLetter", dlqInfo != nil,
	)

	return &QueueInfo{Name: cfg.Name, PhysicalName: physical, URL: url, ARN: arn}, nil
}

func (p *Provisioner) lookupURL(ctx context.Context, physicalName string) (string, error) {
	out, err := p.client.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(physicalName)})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.QueueUrl), nil
}

func (p *Provisioner) queueARN(ctx context.Context, url string) (string, error) {
	out, err := p.client.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return "", err
	}
	return out.Attributes[string(types.QueueAttributeNameQueueArn)], nil
}

// attachRedrivePolicy routes messages to the DLQ after maxReceiveCount
// failed deliveries.
func (p *Provisioner) attachRedrivePolicy(ctx context.Context, queueURL, dlqARN string, maxReceiveCount int) error {
	policy, err := json.Marshal(map[string]string{
		"deadLetterTargetArn": dlqARN,
		"maxReceiveCount":     strconv.Itoa(maxReceiveCount),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal redrive policy: %w", err)
	}

	_, err = p.client.SetQueueAttributes(ctx, &awssqs.SetQueueAttributesInput{
		QueueUrl: aws.String(queueURL),
		Attributes: map[string]string{
			string(types.QueueAttributeNameRedrivePolicy): string(policy),
		},
	})
	return err
}

func (p *Provisioner) queueAttributes(cfg *QueueConfig) map[string]string {
	attrs := map[string]string{
		string(types.QueueAttributeNameVisibilityTimeout):             strconv.Itoa(cfg.VisibilityTimeoutSeconds),
		string(types.QueueAttributeNameMessageRetentionPeriod):        strconv.Itoa(cfg.MessageRetentionSeconds),
		string(types.QueueAttributeNameMaximumMessageSize):            strconv.Itoa(cfg.MaxMessageSizeBytes),
		string(types.QueueAttributeNameReceiveMessageWaitTimeSeconds): strconv.Itoa(cfg.ReceiveWaitTimeSeconds),
	}
	if cfg.IsFifo {
		attrs[string(types.QueueAttributeNameFifoQueue)] = "true"
		attrs[string(types.QueueAttributeNameContentBasedDeduplication)] = "false"
	}
	return attrs
}
