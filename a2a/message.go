package a2a

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the wire version stamped on every message at creation.
const ProtocolVersion = "1.0"

// Default metadata values applied by New.
const (
	DefaultPriority = 5
	DefaultTTL      = 300 // seconds
)

// MessageType identifies the semantic category of a message. The set is
// closed; receivers may filter on it.
type MessageType string

// Message type values.
const (
	// Lifecycle
	TypeHandshake MessageType = "handshake"
	TypeAck       MessageType = "ack"

	// Planning
	TypeProposal      MessageType = "proposal"
	TypeOptimizedPlan MessageType = "optimized_plan"

	// Data sharing
	TypeStateUpdate MessageType = "state_update"
	TypeQuery       MessageType = "query"
	TypeResponse    MessageType = "response"

	// Control
	TypeError  MessageType = "error"
	TypeCancel MessageType = "cancel"
)

// Metadata carries routing and delivery hints for a message.
type Metadata struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver,omitempty"` // empty means broadcast
	Priority int    `json:"priority"`           // 1-10, higher is more urgent
	TTL      int    `json:"ttl"`                // seconds
}

// Message is the envelope for all inter-agent communication. After signing
// it must be treated as immutable: any field mutation invalidates the
// signature, which is the tamper-detection property.
type Message struct {
	MessageID     string         `json:"message_id"`
	TraceID       string         `json:"trace_id"`
	CorrelationID string         `json:"correlation_id"`
	MessageType   MessageType    `json:"message_type"`
	Version       string         `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload"`
	Meta          Metadata       `json:"meta"`
	Signature     string         `json:"signature,omitempty"`
}

// Option mutates a message during construction.
type Option func(*Message)

// WithReceiver sets the receiver identity (absent means broadcast).
func WithReceiver(receiver string) Option {
	return func(m *Message) { m.Meta.Receiver = receiver }
}

// WithPriority overrides the default priority (1-10).
func WithPriority(p int) Option {
	return func(m *Message) { m.Meta.Priority = p }
}

// WithTTL overrides the default time-to-live in seconds.
func WithTTL(seconds int) Option {
	return func(m *Message) { m.Meta.TTL = seconds }
}

// New creates an unsigned message with defaults filled in. The trace and
// correlation ids come from the originating task.
func New(messageType MessageType, payload map[string]any, traceID, correlationID, sender string, opts ...Option) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	m := Message{
		MessageID:     uuid.NewString(),
		TraceID:       traceID,
		CorrelationID: correlationID,
		MessageType:   messageType,
		Version:       ProtocolVersion,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		Meta: Metadata{
			Sender:   sender,
			Priority: DefaultPriority,
			TTL:      DefaultTTL,
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NewProposal creates a proposal message (published by the planner agent).
func NewProposal(payload map[string]any, traceID, correlationID, sender, receiver string) Message {
	return New(TypeProposal, payload, traceID, correlationID, sender, WithReceiver(receiver))
}

// NewOptimizedPlan creates an optimized_plan message (published by the
// optimizer agent back to the orchestrator).
func NewOptimizedPlan(payload map[string]any, traceID, correlationID, sender, receiver string) Message {
	return New(TypeOptimizedPlan, payload, traceID, correlationID, sender, WithReceiver(receiver))
}

// NewError creates an error message carrying failure details.
func NewError(payload map[string]any, traceID, correlationID, sender, receiver string) Message {
	return New(TypeError, payload, traceID, correlationID, sender, WithReceiver(receiver))
}
