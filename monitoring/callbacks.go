package monitoring

import (
	"fmt"
	"sync"

	"github.com/planmesh/planmesh/logging"
)

// Listener consumes monitoring events. Listeners run synchronously on the
// emitter's goroutine; keep them fast.
type Listener func(Event)

// Callbacks is the monitoring surface handed to agents and the workflow
// for one planning run. It is bound to the run's trace and correlation ids
// so emitted events carry them automatically.
type Callbacks struct {
	traceID       string
	correlationID string

	mu        sync.Mutex
	listeners []Listener
	logger    logging.Logger
}

// NewCallbacks creates a callback set bound to a trace/correlation pair.
func NewCallbacks(traceID, correlationID string, logger logging.Logger) *Callbacks {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Callbacks{traceID: traceID, correlationID: correlationID, logger: logger}
}

// TraceID returns the bound trace id.
func (c *Callbacks) TraceID() string { return c.traceID }

// CorrelationID returns the bound correlation id.
func (c *Callbacks) CorrelationID() string { return c.correlationID }

// RegisterListener adds a listener for every subsequently emitted event.
func (c *Callbacks) RegisterListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// emit fans an event out to all listeners with per-listener panic
// isolation; a failing listener never aborts delivery to the rest.
func (c *Callbacks) emit(ev Event) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Monitoring listener panicked", "event_id", ev.EventID, "panic", r)
				}
			}()
			l(ev)
		}()
	}
}

// OnTaskStart reports that a task began.
func (c *Callbacks) OnTaskStart(taskID, agentID, message string, data map[string]any) {
	ev := newEvent(TaskStart, SeverityInfo, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = message
	if data != nil {
		ev.Data = data
	}
	c.emit(ev)
	c.logger.Info(message, "event_type", string(TaskStart), "trace_id", c.traceID,
		"correlation_id", c.correlationID, "task_id", taskID, "agent_id", agentID)
}

// OnTaskProgress reports fractional progress (0.0-1.0) for a task.
func (c *Callbacks) OnTaskProgress(taskID string, progress float64, agentID, message string, data map[string]any) {
	ev := newEvent(TaskProgress, SeverityInfo, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = message
	if data != nil {
		ev.Data = data
	}
	ev.Data["progress"] = progress
	c.emit(ev)
	c.logger.Info(fmt.Sprintf("%s (%.0f%%)", message, progress*100),
		"event_type", string(TaskProgress), "trace_id", c.traceID,
		"correlation_id", c.correlationID, "task_id", taskID, "agent_id", agentID)
}

// OnTaskEnd reports successful task completion.
func (c *Callbacks) OnTaskEnd(taskID, agentID, message string, data map[string]any) {
	ev := newEvent(TaskEnd, SeverityInfo, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = message
	if data != nil {
		ev.Data = data
	}
	c.emit(ev)
	c.logger.Info(message, "event_type", string(TaskEnd), "trace_id", c.traceID,
		"correlation_id", c.correlationID, "task_id", taskID, "agent_id", agentID)
}

// OnTaskError reports a task failure, capturing the error kind and message.
func (c *Callbacks) OnTaskError(taskID string, err error, agentID, message string, data map[string]any) {
	if message == "" {
		message = fmt.Sprintf("Task error: %v", err)
	}
	ev := newEvent(TaskError, SeverityError, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = message
	if data != nil {
		ev.Data = data
	}
	ev.Error = &ErrorDetail{Type: fmt.Sprintf("%T", err), Message: err.Error()}
	c.emit(ev)
	c.logger.Error(message, "event_type", string(TaskError), "trace_id", c.traceID,
		"correlation_id", c.correlationID, "task_id", taskID, "agent_id", agentID,
		"error_type", fmt.Sprintf("%T", err))
}

// OnStateChange reports that a shared state key changed.
func (c *Callbacks) OnStateChange(taskID, key string, oldValue, newValue any, agentID string) {
	ev := newEvent(StateChange, SeverityDebug, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = fmt.Sprintf("State changed: %s", key)
	ev.Data["key"] = key
	if oldValue != nil {
		ev.Data["old_value"] = fmt.Sprintf("%v", oldValue)
	}
	if newValue != nil {
		ev.Data["new_value"] = fmt.Sprintf("%v", newValue)
	}
	c.emit(ev)
	c.logger.Debug(ev.Message, "event_type", string(StateChange), "task_id", taskID, "key", key)
}

// OnAgentMessage reports that an agent published a bus message.
func (c *Callbacks) OnAgentMessage(taskID, agentID, messageType, message string, data map[string]any) {
	ev := newEvent(AgentMessage, SeverityInfo, c.traceID, c.correlationID)
	ev.TaskID = taskID
	ev.AgentID = agentID
	ev.Message = message
	if data != nil {
		ev.Data = data
	}
	ev.Data["message_type"] = messageType
	c.emit(ev)
	c.logger.Info(message, "event_type", string(AgentMessage), "trace_id", c.traceID,
		"correlation_id", c.correlationID, "task_id", taskID, "agent_id", agentID,
		"message_type", messageType)
}

// NewLogListener returns a listener that writes every event through the
// given structured logger, the default durable sink for monitoring events.
func NewLogListener(logger logging.Logger) Listener {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(ev Event) {
		args := []any{
			"event_id", ev.EventID,
			"event_type", string(ev.EventType),
			"severity", string(ev.Severity),
			"trace_id", ev.TraceID,
			"correlation_id", ev.CorrelationID,
			"task_id", ev.TaskID,
			"agent_id", ev.AgentID,
		}
		if ev.Error != nil {
			args = append(args, "error_type", ev.Error.Type, "error_message", ev.Error.Message)
		}
		switch ev.Severity {
		case SeverityError, SeverityCritical:
			logger.Error(ev.Message, args...)
		case SeverityWarning:
			logger.Warn(ev.Message, args...)
		case SeverityDebug:
			logger.Debug(ev.Message, args...)
		default:
			logger.Info(ev.Message, args...)
		}
	}
}
