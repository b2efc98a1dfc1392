// Package health reports the worker's view of its queue-service dependency.
package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/accessio/permq-go/internal/sqs"
)

// Status represents a check outcome
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one health check
type CheckResult struct {
	Name      string
	Status    Status
	Message   string
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// Checker performs a single named health check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// QueueServiceChecker verifies that every configured queue resolves against
// the queue service.
type QueueServiceChecker struct {
	client   sqs.API
	registry *sqs.Registry
	logger   *slog.Logger
}

// NewQueueServiceChecker creates a queue-service health checker
func NewQueueServiceChecker(client sqs.API, registry *sqs.Registry, logger *slog.Logger) *QueueServiceChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueServiceChecker{
		client:   client,
		registry: registry,
		logger:   logger,
	}
}

func (c *QueueServiceChecker) Name() string {
	return "queue-service"
}

func (c *QueueServiceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Timestamp: start,
	}

	missing := 0
	for _, cfg := range c.registry.All() {
		_, err := c.client.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{
			QueueName: aws.String(cfg.PhysicalName()),
		})
		if err == nil {
			continue
		}
		if sqs.IsQueueMissing(err) {
			missing++
			continue
		}
		result.Status = StatusUnhealthy
		result.Message = "queue service unreachable"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	if missing > 0 {
		result.Status = StatusDegraded
		result.Message = "some configured queues are not provisioned"
		c.logger.Warn("health check found unprovisioned queues", "missing", missing)
	}

	result.Duration = time.Since(start)
	return result
}

// Run executes all checkers and reports the worst status observed.
func Run(ctx context.Context, checkers ...Checker) (Status, []CheckResult) {
	overall := StatusHealthy
	results := make([]CheckResult, 0, len(checkers))

	for _, checker := range checkers {
		result := checker.Check(ctx)
		results = append(results, result)
		switch {
		case result.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case result.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return overall, results
}
