package monitoring

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a monitoring event.
type EventType string

// Event type values.
const (
	TaskStart    EventType = "task_start"
	TaskProgress EventType = "task_progress"
	TaskEnd      EventType = "task_end"
	TaskError    EventType = "task_error"
	StateChange  EventType = "state_change"
	APICall      EventType = "api_call"
	AgentMessage EventType = "agent_message"
)

// Severity ranks the urgency of an event.
type Severity string

// Severity values.
const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ErrorDetail captures the kind and message of a task failure.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Event is an immutable observability record. It is emitted to listeners
// and never stored beyond that fan-out.
type Event struct {
	EventID       string         `json:"event_id"`
	EventType     EventType      `json:"event_type"`
	Severity      Severity       `json:"severity"`
	Timestamp     time.Time      `json:"timestamp"`
	TraceID       string         `json:"trace_id"`
	CorrelationID string         `json:"correlation_id"`
	TaskID        string         `json:"task_id,omitempty"`
	AgentID       string         `json:"agent_id,omitempty"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	Error         *ErrorDetail   `json:"error,omitempty"`
}

func newEvent(eventType EventType, severity Severity, traceID, correlationID string) Event {
	return Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Severity:      severity,
		Timestamp:     time.Now().UTC(),
		TraceID:       traceID,
		CorrelationID: correlationID,
		Data:          map[string]any{},
	}
}
