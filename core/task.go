package core

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a planning run. Terminal states
// (completed, failed, cancelled) are final and never re-entered.
type TaskStatus string

// Task status values.
const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// TaskContext ties one planning run together. It is owned by the workflow
// for the duration of the run; agents receive it by pointer and record
// stage outputs in IntermediateResults keyed by stage name. Cross-agent
// sharing happens through the state store, not through this struct.
type TaskContext struct {
	TaskID              string         `json:"task_id"`
	CorrelationID       string         `json:"correlation_id"`
	TraceID             string         `json:"trace_id"`
	TravelerProfile     TravelerProfile `json:"traveler_profile"`
	RequestParams       map[string]any `json:"request_params"`
	IntermediateResults map[string]any `json:"intermediate_results"`
	Status              TaskStatus     `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NewTaskContext creates a pending task context with a fresh task id. The
// correlation and trace ids are threaded through from the caller, never
// generated here.
func NewTaskContext(correlationID, traceID string, profile TravelerProfile, params map[string]any) *TaskContext {
	now := time.Now().UTC()
	if params == nil {
		params = map[string]any{}
	}
	return &TaskContext{
		TaskID:              uuid.NewString(),
		CorrelationID:       correlationID,
		TraceID:             traceID,
		TravelerProfile:     profile,
		RequestParams:       params,
		IntermediateResults: map[string]any{},
		Status:              TaskPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// SetStatus transitions the task status and bumps the update timestamp.
func (c *TaskContext) SetStatus(s TaskStatus) {
	c.Status = s
	c.UpdatedAt = time.Now().UTC()
}

// SetResult records a stage output under the given stage name.
func (c *TaskContext) SetResult(stage string, value any) {
	c.IntermediateResults[stage] = value
	c.UpdatedAt = time.Now().UTC()
}

// Result returns a previously recorded stage output.
func (c *TaskContext) Result(stage string) (any, bool) {
	v, ok := c.IntermediateResults[stage]
	return v, ok
}

// Param returns a request parameter as a string, with a default.
func (c *TaskContext) Param(key, def string) string {
	if v, ok := c.RequestParams[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
