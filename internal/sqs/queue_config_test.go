package sqs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysicalName(t *testing.T) {
	t.Run("standard queue keeps its name", func(t *testing.T) {
		cfg := NewQueueConfig("user-events")
		assert.Equal(t, "user-events", cfg.PhysicalName())
	})

	t.Run("fifo queue carries suffix", func(t *testing.T) {
		cfg := NewQueueConfig("tenant-events").AsFifo()
		assert.Equal(t, "tenant-events.fifo", cfg.PhysicalName())
	})

	t.Run("suffix is not duplicated", func(t *testing.T) {
		cfg := NewQueueConfig("tenant-events.fifo").AsFifo()
		assert.Equal(t, "tenant-events.fifo", cfg.PhysicalName())
	})
}

func TestQueueConfigValidate(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, NewQueueConfig("q").Validate())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		err := NewQueueConfig("").Validate()
		assert.ErrorIs(t, err, ErrInvalidQueueConfig)
	})

	t.Run("rejects maxReceiveCount below one", func(t *testing.T) {
		cfg := NewQueueConfig("q")
		cfg.MaxReceiveCount = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidQueueConfig)
	})

	t.Run("rejects ordering mode mismatch with dlq", func(t *testing.T) {
		cfg := NewQueueConfig("q").WithDeadLetter()
		cfg.IsFifo = true
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidQueueConfig)
	})

	t.Run("fifo dlq inherits ordering mode", func(t *testing.T) {
		cfg := NewQueueConfig("q").AsFifo().WithDeadLetter()
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.DeadLetterQueue.IsFifo)
		assert.Equal(t, "q-dlq.fifo", cfg.DeadLetterQueue.PhysicalName())
	})
}

func TestRegistry(t *testing.T) {
	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewRegistry(NewQueueConfig("q"), NewQueueConfig("q"))
		assert.ErrorIs(t, err, ErrInvalidQueueConfig)
	})

	t.Run("returns configs by name", func(t *testing.T) {
		registry, err := NewRegistry(NewQueueConfig("a"), NewQueueConfig("b"))
		assert.NoError(t, err)

		cfg, ok := registry.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "a", cfg.Name)

		_, ok = registry.Get("missing")
		assert.False(t, ok)

		assert.Len(t, registry.All(), 2)
	})

	t.Run("default registry is valid", func(t *testing.T) {
		registry := DefaultRegistry()
		tenantCfg, ok := registry.Get("tenant-events")
		assert.True(t, ok)
		assert.True(t, tenantCfg.IsFifo)
		assert.NotNil(t, tenantCfg.DeadLetterQueue)
	})
}
