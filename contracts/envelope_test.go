package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvelope(t *testing.T) {
	t.Run("wraps message with metadata fields", func(t *testing.T) {
		msg := NewUserCreatedEvent("tenant-1", "user-1", "user@example.com")
		msg.SetCorrelationID("corr-1")

		env, err := NewEnvelope(msg, WithUserID("admin-7"), WithMetadata(map[string]string{"origin": "api"}))

		assert.NoError(t, err)
		assert.Equal(t, msg.GetID(), env.MessageID)
		assert.Equal(t, "UserCreatedEvent", env.MessageType)
		assert.Equal(t, "corr-1", env.CorrelationID)
		assert.Equal(t, "admin-7", env.UserID)
		assert.Equal(t, "api", env.Metadata["origin"])
		assert.False(t, env.CreatedAt.IsZero())
		assert.Equal(t, 0, env.ProcessingAttempts)

		var payload UserCreatedEvent
		assert.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, "user@example.com", payload.Email)
	})

	t.Run("rejects nil message", func(t *testing.T) {
		env, err := NewEnvelope(nil)
		assert.Error(t, err)
		assert.Nil(t, env)
	})
}

func TestParseEnvelope(t *testing.T) {
	t.Run("round trips a serialized envelope", func(t *testing.T) {
		msg := NewRoleAssignedEvent("tenant-1", "user-1", "role-9", "auditor")
		env, err := NewEnvelope(msg)
		assert.NoError(t, err)

		body, err := env.Serialize()
		assert.NoError(t, err)

		parsed, err := ParseEnvelope(body)
		assert.NoError(t, err)
		assert.Equal(t, env.MessageID, parsed.MessageID)
		assert.Equal(t, env.MessageType, parsed.MessageType)
		assert.JSONEq(t, string(env.Payload), string(parsed.Payload))
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		parsed, err := ParseEnvelope([]byte("{not json"))
		assert.Error(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("rejects missing payload", func(t *testing.T) {
		parsed, err := ParseEnvelope([]byte(`{"messageId":"m1","messageType":"UserCreatedEvent"}`))
		assert.Error(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("rejects null payload", func(t *testing.T) {
		parsed, err := ParseEnvelope([]byte(`{"messageId":"m1","messageType":"UserCreatedEvent","payload":null}`))
		assert.Error(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("rejects missing message type", func(t *testing.T) {
		parsed, err := ParseEnvelope([]byte(`{"messageId":"m1","payload":{"a":1}}`))
		assert.Error(t, err)
		assert.Nil(t, parsed)
	})
}

func TestIncrementAttempts(t *testing.T) {
	env := &Envelope{}
	env.IncrementAttempts()
	env.IncrementAttempts()
	assert.Equal(t, 2, env.ProcessingAttempts)
}

func TestBaseMessage(t *testing.T) {
	t.Run("generates distinct ids", func(t *testing.T) {
		a := NewBaseMessage("TestEvent")
		b := NewBaseMessage("TestEvent")
		assert.NotEqual(t, a.GetID(), b.GetID())
		assert.Equal(t, "TestEvent", a.GetType())
		assert.False(t, a.GetTimestamp().IsZero())
	})
}
