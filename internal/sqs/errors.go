package sqs

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

var (
	// Configuration errors
	ErrQueueNotConfigured = errors.New("sqs: queue not configured in registry")
	ErrInvalidQueueConfig = errors.New("sqs: invalid queue configuration")

	// Provisioning errors
	ErrProvisioningFailed = errors.New("sqs: queue provisioning failed")

	// Publish errors
	ErrFifoQueueRequiresGroup = errors.New("sqs: fifo queue requires an ordering group")
	ErrNotFifoQueue           = errors.New("sqs: ordered publish requires a fifo queue")
)

// ProvisionError represents a failure while ensuring or deleting a queue
type ProvisionError struct {
	Queue string // Logical queue name
	Op    string // Operation that failed
	Err   error  // Underlying error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("sqs provision error: %s failed for queue %q: %v", e.Op, e.Queue, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// ResolveError represents a failure while resolving a queue URL
type ResolveError struct {
	Queue string // Physical queue name
	Err   error  // Underlying error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("sqs resolve error: failed to resolve queue %q: %v", e.Queue, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// throttling and server-side error codes that are safe to retry
var retryableCodes = map[string]bool{
	"ThrottlingException":       true,
	"Throttling":                true,
	"RequestThrottled":          true,
	"RequestThrottledException": true,
	"TooManyRequestsException":  true,
	"ServiceUnavailable":        true,
	"InternalError":             true,
	"InternalFailure":           true,
	"RequestTimeout":            true,
	"RequestTimeoutException":   true,
	"KMSThrottled":              true,
	"OverLimit":                 true,
}

// IsQueueMissing reports whether err indicates the queue does not exist.
func IsQueueMissing(err error) bool {
	var notExist *types.QueueDoesNotExist
	return errors.As(err, &notExist)
}

// IsRetryable classifies queue-service errors for the resilience pipeline.
// Throttling and server faults are transient; bad requests, missing queues
// and cancelled contexts are not. Plain network errors default to retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if IsQueueMissing(err) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.ErrorCode()] {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	// Transport-level failures (connection reset, DNS) arrive as plain errors.
	return true
}
