package sqs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
)

// URLCache resolves physical queue names to their URLs, hitting the queue
// service at most once per name. One coarse lock guards population for the
// whole cache: concurrent first-resolutions of different queues serialize
// briefly at startup, which is acceptable because resolution happens once per
// name for the life of the process. Cached reads take only the read lock.
type URLCache struct {
	client API
	logger *slog.Logger

	mu   sync.RWMutex
	urls map[string]string
}

// NewURLCache creates a new queue URL cache
func NewURLCache(client API, logger *slog.Logger) *URLCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &URLCache{
		client: client,
		logger: logger,
		urls:   make(map[string]string),
	}
}

// Resolve returns the URL for a physical queue name, looking it up on first
// use and serving it from memory afterwards.
func (c *URLCache) Resolve(ctx context.Context, physicalName string) (string, error) {
	c.mu.RLock()
	url, ok := c.urls[physicalName]
	c.mu.RUnlock()
	if ok {
		return url, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have populated the entry while we waited.
	if url, ok := c.urls[physicalName]; ok {
		return url, nil
	}

	out, err := c.client.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{
		QueueName: aws.String(physicalName),
	})
	if err != nil {
		return "", &ResolveError{Queue: physicalName, Err: err}
	}

	url = aws.ToString(out.QueueUrl)
	c.urls[physicalName] = url
	c.logger.Debug("queue url resolved", "queue", physicalName, "url", url)
	return url, nil
}

// Invalidate drops a cached entry, forcing the next Resolve to look it up
// again. Used after a queue is deleted and recreated.
func (c *URLCache) Invalidate(physicalName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.urls, physicalName)
}
