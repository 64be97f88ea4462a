package agent

// Well-known agent identities on the bus.
const (
	PlannerID      = "itinerary-planner"
	OptimizerID    = "plan-optimizer"
	ResearchID     = "research-agent"
	OrchestratorID = "orchestrator"
)

// State store key conventions. These are an interop contract between the
// agents and the workflow's fallback path; the formats must not change.

// OptimizedPlanKey scopes an optimized plan to a task or trace id.
func OptimizedPlanKey(id string) string { return "optimized_plan:" + id }

// ResearchKey scopes aggregated research to a correlation id.
func ResearchKey(correlationID string) string { return correlationID + ":research" }

// WebResultsKey scopes raw web search results to a correlation id.
func WebResultsKey(correlationID string) string { return correlationID + ":web_results" }

// LLMItineraryKey scopes the raw generated itinerary to a task id.
func LLMItineraryKey(taskID string) string { return "llm_itinerary:" + taskID }
