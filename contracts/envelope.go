package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps messages for transport. An envelope is immutable once
// published; only ProcessingAttempts may be updated by a consumer for local
// bookkeeping. The queue service remains the source of truth for the real
// receive count.
type Envelope struct {
	MessageID          string            `json:"messageId"`
	MessageType        string            `json:"messageType"`
	CreatedAt          time.Time         `json:"createdAt"`
	Payload            json.RawMessage   `json:"payload"`
	CorrelationID      string            `json:"correlationId,omitempty"`
	UserID             string            `json:"userId,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	ProcessingAttempts int               `json:"processingAttempts"`
}

// EnvelopeOption configures envelope creation
type EnvelopeOption func(*Envelope)

// WithUserID records the acting user on the envelope
func WithUserID(userID string) EnvelopeOption {
	return func(e *Envelope) {
		e.UserID = userID
	}
}

// WithMetadata merges custom metadata entries into the envelope
func WithMetadata(metadata map[string]string) EnvelopeOption {
	return func(e *Envelope) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(metadata))
		}
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// NewEnvelope wraps a message for transport, serializing it as the payload.
func NewEnvelope(msg Message, options ...EnvelopeOption) (*Envelope, error) {
	if msg == nil {
		return nil, fmt.Errorf("message cannot be nil")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message %s: %w", msg.GetID(), err)
	}

	env := &Envelope{
		MessageID:     msg.GetID(),
		MessageType:   msg.GetType(),
		CreatedAt:     time.Now().UTC(),
		Payload:       payload,
		CorrelationID: msg.GetCorrelationID(),
	}

	for _, opt := range options {
		opt(env)
	}

	return env, nil
}

// ParseEnvelope decodes a wire body into an envelope and validates that it
// carries a payload. A body that fails here is unrecoverable.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, fmt.Errorf("envelope %s has no payload", env.MessageID)
	}
	if env.MessageType == "" {
		return nil, fmt.Errorf("envelope %s has no message type", env.MessageID)
	}
	return &env, nil
}

// Serialize renders the envelope as its wire body.
func (e *Envelope) Serialize() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope %s: %w", e.MessageID, err)
	}
	return body, nil
}

// IncrementAttempts bumps the handler-side attempt counter.
func (e *Envelope) IncrementAttempts() {
	e.ProcessingAttempts++
}
