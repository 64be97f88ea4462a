package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// stubCompleter returns a canned response or error for every prompt.
type stubCompleter struct {
	response string
	err      error
	requests []model.Request
}

func (s *stubCompleter) Complete(_ context.Context, req model.Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const plannerResponse = "```json\n" + `{
  "destination": "Goa",
  "transportation": {"to_destination": {"method": "Flight", "duration": "2h", "cost": 8000}},
  "accommodation": {"name": "Beach Resort", "cost_per_night": 3000, "total_cost": 9000, "recommendation": "Near Baga"},
  "daily_schedule": [
    {"day": 1, "activities": [
      {"name": "Beach Morning", "time": "9:00 AM - 12:00 PM", "location": "Baga Beach", "description": "Relax", "cost": 0},
      {"name": "Fort Walk", "time": "2:00 PM - 4:00 PM", "location": "Aguada", "description": "History", "cost": 500}
    ]}
  ],
  "cost_breakdown": {"transportation": 8000, "accommodation": 9000, "activities": 500, "food": 3000, "total": 20500, "currency": "INR"}
}` + "\n```"

func testTaskCtx() *core.TaskContext {
	profile := core.TravelerProfile{
		Name: "Asha",
		Preferences: core.TravelerPreferences{
			BudgetMin: decimal.NewFromInt(10000),
			BudgetMax: decimal.NewFromInt(30000),
		},
	}
	return core.NewTaskContext("corr-1", "trace-1", profile, map[string]any{
		"destination": "Goa",
		"start_date":  "2026-03-01",
		"end_date":    "2026-03-03",
	})
}

func TestPlanItineraryPublishesSignedProposal(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	planner := NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	taskCtx := testTaskCtx()
	callbacks := monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil)

	payload, err := planner.PlanItinerary(context.Background(), taskCtx, callbacks)
	require.NoError(t, err)

	assert.Equal(t, taskCtx.TaskID, payload["task_id"])
	assert.Equal(t, "Goa", payload["destination"])
	assert.Equal(t, "20500", payload["estimated_total"])
	assert.Equal(t, "INR", payload["currency"])
	assert.Len(t, payload["flights"], 1)
	assert.Len(t, payload["hotels"], 1)
	assert.Len(t, payload["activities"], 2)

	msg := bus.Receive(context.Background(), OptimizerID, 0, a2a.TypeProposal)
	require.NotNil(t, msg, "proposal not delivered to optimizer")
	assert.Equal(t, PlannerID, msg.Meta.Sender)
	assert.Equal(t, taskCtx.TraceID, msg.TraceID)
	assert.True(t, a2a.Verify(*msg, testSecret), "proposal must carry a valid signature")

	// Working artifacts land in the store under task-scoped keys.
	assert.NotNil(t, store.Get(LLMItineraryKey(taskCtx.TaskID)))
	assert.NotNil(t, store.Get("flights:"+taskCtx.TaskID))
	assert.NotNil(t, store.Get("hotels:"+taskCtx.TaskID))
	assert.NotNil(t, store.Get("activities:"+taskCtx.TaskID))
}

func TestPlanItineraryUsesResearchFromStore(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	completer := &stubCompleter{response: plannerResponse}
	planner := NewPlanner(bus, store, completer, testSecret)
	taskCtx := testTaskCtx()
	store.Set(ResearchKey(taskCtx.CorrelationID), map[string]any{"weather_summary": "sunny"}, 0)

	_, err := planner.PlanItinerary(context.Background(), taskCtx,
		monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil))
	require.NoError(t, err)

	require.Len(t, completer.requests, 1)
	assert.Contains(t, completer.requests[0].Prompt, "sunny")
}

func TestPlanItineraryDegradesOnMalformedResponse(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	planner := NewPlanner(bus, store, &stubCompleter{response: "sorry, no json today"}, testSecret)
	taskCtx := testTaskCtx()

	payload, err := planner.PlanItinerary(context.Background(), taskCtx,
		monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil))
	require.NoError(t, err, "parse failure must degrade, not fail")

	assert.Equal(t, "Goa", payload["destination"])
	assert.Empty(t, payload["flights"])
	assert.NotNil(t, bus.Receive(context.Background(), OptimizerID, 0, a2a.TypeProposal),
		"a skeleton proposal should still be published")
}

func TestPlanItineraryFailsOnModelError(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	planner := NewPlanner(bus, store, &stubCompleter{err: errors.New("rate limited")}, testSecret)
	taskCtx := testTaskCtx()

	_, err := planner.PlanItinerary(context.Background(), taskCtx,
		monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil))
	require.Error(t, err)
	assert.Equal(t, 0, bus.QueueSize(OptimizerID), "no proposal on transport failure")
}
