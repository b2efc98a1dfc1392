package sqs

import (
	"fmt"
	"strings"
)

// FifoSuffix is the mandatory physical name suffix for FIFO queues.
const FifoSuffix = ".fifo"

// QueueConfig declaratively describes one logical queue. Configs are defined
// at deployment time and never mutated at runtime.
type QueueConfig struct {
	Name                     string
	IsFifo                   bool
	DeadLetterQueue          *QueueConfig
	MaxReceiveCount          int // deliveries before dead-lettering
	VisibilityTimeoutSeconds int
	MessageRetentionSeconds  int
	MaxMessageSizeBytes      int
	ReceiveWaitTimeSeconds   int // long-poll duration
}

// NewQueueConfig creates a queue config with the subsystem defaults.
func NewQueueConfig(name string) *QueueConfig {
	return &QueueConfig{
		Name:                     name,
		MaxReceiveCount:          5,
		VisibilityTimeoutSeconds: 30,
		MessageRetentionSeconds:  345600, // 4 days
		MaxMessageSizeBytes:      262144,
		ReceiveWaitTimeSeconds:   20,
	}
}

// WithDeadLetter attaches a dead-letter queue config named <name>-dlq,
// inheriting the primary queue's ordering mode.
func (c *QueueConfig) WithDeadLetter() *QueueConfig {
	dlq := NewQueueConfig(c.Name + "-dlq")
	dlq.IsFifo = c.IsFifo
	c.DeadLetterQueue = dlq
	return c
}

// AsFifo switches the queue (and any attached DLQ) into ordering and
// deduplication mode.
func (c *QueueConfig) AsFifo() *QueueConfig {
	c.IsFifo = true
	if c.DeadLetterQueue != nil {
		c.DeadLetterQueue.IsFifo = true
	}
	return c
}

// PhysicalName returns the provisioned queue name, carrying the mandatory
// suffix in FIFO mode.
func (c *QueueConfig) PhysicalName() string {
	if c.IsFifo && !strings.HasSuffix(c.Name, FifoSuffix) {
		return c.Name + FifoSuffix
	}
	return c.Name
}

// Validate checks the invariants that provisioning relies on.
func (c *QueueConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: queue name cannot be empty", ErrInvalidQueueConfig)
	}
	if c.MaxReceiveCount < 1 {
		return fmt.Errorf("%w: maxReceiveCount must be >= 1 for queue %q", ErrInvalidQueueConfig, c.Name)
	}
	if c.DeadLetterQueue != nil {
		if c.DeadLetterQueue.IsFifo != c.IsFifo {
			return fmt.Errorf("%w: queue %q and its DLQ must share ordering mode", ErrInvalidQueueConfig, c.Name)
		}
		return c.DeadLetterQueue.Validate()
	}
	return nil
}

// Registry holds the declarative queue configuration for the process,
// keyed by logical queue name.
type Registry struct {
	configs map[string]*QueueConfig
}

// NewRegistry creates a registry from the given configs.
func NewRegistry(configs ...*QueueConfig) (*Registry, error) {
	r := &Registry{configs: make(map[string]*QueueConfig, len(configs))}
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.configs[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate queue %q", ErrInvalidQueueConfig, cfg.Name)
		}
		r.configs[cfg.Name] = cfg
	}
	return r, nil
}

// Get returns the config for a logical queue name.
func (r *Registry) Get(name string) (*QueueConfig, bool) {
	cfg, ok := r.configs[name]
	return cfg, ok
}

// All returns every configured queue.
func (r *Registry) All() []*QueueConfig {
	configs := make([]*QueueConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		configs = append(configs, cfg)
	}
	return configs
}

// DefaultRegistry describes the queues of the permission backend: user and
// permission events on standard queues, tenant lifecycle events on a FIFO
// queue so downstream projections replay them in order.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(
		NewQueueConfig("user-events").WithDeadLetter(),
		NewQueueConfig("permission-events").WithDeadLetter(),
		NewQueueConfig("tenant-events").AsFifo().WithDeadLetter(),
	)
	if err != nil {
		// Static configuration above; an error here is a programming bug.
		panic(err)
	}
	return registry
}
