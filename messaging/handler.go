package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/accessio/permq-go/contracts"
)

// MessageHandler processes a decoded message. Handlers are invoked through
// the resilience pipeline and must be idempotent: the subsystem guarantees
// at-least-once delivery, not exactly-once.
type MessageHandler interface {
	Handle(ctx context.Context, msg contracts.Message) error
}

// MessageHandlerFunc is a function adapter for MessageHandler
type MessageHandlerFunc func(ctx context.Context, msg contracts.Message) error

// Handle implements MessageHandler
func (f MessageHandlerFunc) Handle(ctx context.Context, msg contracts.Message) error {
	return f(ctx, msg)
}

// TypeRegistry maps wire message-type names to concrete Go types so the
// consumer can decode envelope payloads.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register binds a message-type name to the concrete type of prototype.
// Registering the same name twice with a different type is an error.
func (r *TypeRegistry) Register(typeName string, prototype contracts.Message) error {
	if typeName == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	if prototype == nil {
		return fmt.Errorf("prototype cannot be nil")
	}

	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("prototype must be a struct, got %v", t.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.types[typeName]; exists {
		if existing == t {
			return nil
		}
		return fmt.Errorf("type name %s already registered to %v", typeName, existing)
	}

	r.types[typeName] = t
	return nil
}

// IsRegistered checks if a type name is registered.
func (r *TypeRegistry) IsRegistered(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[typeName]
	return ok
}

// Decode materializes the envelope payload into the concrete type registered
// for its message type and carries the envelope's correlation ID over.
func (r *TypeRegistry) Decode(env *contracts.Envelope) (contracts.Message, error) {
	r.mu.RLock()
	t, ok := r.types[env.MessageType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("message type %s not registered", env.MessageType)
	}

	instance := reflect.New(t).Interface()
	if err := json.Unmarshal(env.Payload, instance); err != nil {
		return nil, fmt.Errorf("failed to decode payload for %s: %w", env.MessageType, err)
	}

	msg, ok := instance.(contracts.Message)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement Message", env.MessageType)
	}

	if env.CorrelationID != "" {
		msg.SetCorrelationID(env.CorrelationID)
	}
	return msg, nil
}
