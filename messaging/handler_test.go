package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accessio/permq-go/contracts"
)

func TestTypeRegistryRegister(t *testing.T) {
	t.Run("rejects empty type name", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.Error(t, registry.Register("", &contracts.UserCreatedEvent{}))
	})

	t.Run("rejects nil prototype", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.Error(t, registry.Register("UserCreatedEvent", nil))
	})

	t.Run("re-registering the same type is a no-op", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.NoError(t, registry.Register("UserCreatedEvent", &contracts.UserCreatedEvent{}))
		assert.NoError(t, registry.Register("UserCreatedEvent", &contracts.UserCreatedEvent{}))
		assert.True(t, registry.IsRegistered("UserCreatedEvent"))
	})

	t.Run("rejects a name bound to a different type", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.NoError(t, registry.Register("UserCreatedEvent", &contracts.UserCreatedEvent{}))
		assert.Error(t, registry.Register("UserCreatedEvent", &contracts.RoleAssignedEvent{}))
	})

	t.Run("unknown names are not registered", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.False(t, registry.IsRegistered("UserCreatedEvent"))
	})
}

func TestTypeRegistryDecode(t *testing.T) {
	t.Run("materializes the registered concrete type", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.NoError(t, registry.Register("RoleAssignedEvent", &contracts.RoleAssignedEvent{}))

		original := contracts.NewRoleAssignedEvent("tenant-1", "user-1", "role-1", "admin")
		env, err := contracts.NewEnvelope(original)
		assert.NoError(t, err)

		decoded, err := registry.Decode(env)
		assert.NoError(t, err)

		event, ok := decoded.(*contracts.RoleAssignedEvent)
		assert.True(t, ok)
		assert.Equal(t, "user-1", event.UserID)
		assert.Equal(t, "admin", event.RoleName)
		assert.Equal(t, "tenant-1", event.TenantID)
	})

	t.Run("carries the envelope correlation id onto the message", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.NoError(t, registry.Register("UserCreatedEvent", &contracts.UserCreatedEvent{}))

		original := contracts.NewUserCreatedEvent("tenant-1", "user-1", "u@example.com")
		original.SetCorrelationID("corr-42")
		env, err := contracts.NewEnvelope(original)
		assert.NoError(t, err)

		decoded, err := registry.Decode(env)
		assert.NoError(t, err)
		assert.Equal(t, "corr-42", decoded.GetCorrelationID())
	})

	t.Run("fails for an unregistered type", func(t *testing.T) {
		registry := NewTypeRegistry()

		env, err := contracts.NewEnvelope(contracts.NewUserCreatedEvent("t", "u", "e@example.com"))
		assert.NoError(t, err)

		_, err = registry.Decode(env)
		assert.Error(t, err)
	})

	t.Run("fails on an undecodable payload", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.NoError(t, registry.Register("UserCreatedEvent", &contracts.UserCreatedEvent{}))

		env, err := contracts.NewEnvelope(contracts.NewUserCreatedEvent("t", "u", "e@example.com"))
		assert.NoError(t, err)
		env.Payload = json.RawMessage(`"a string, not an object"`)

		_, err = registry.Decode(env)
		assert.Error(t, err)
	})
}

func TestMessageHandlerFunc(t *testing.T) {
	var got contracts.Message
	handler := MessageHandlerFunc(func(ctx context.Context, msg contracts.Message) error {
		got = msg
		return nil
	})

	msg := contracts.NewUserCreatedEvent("t", "u", "e@example.com")
	assert.NoError(t, handler.Handle(context.Background(), msg))
	assert.Equal(t, msg, got)
}
