package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/agent"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(context.Context, model.Request) (string, error) {
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
    ]},
    {"day": 2, "activities": [
      {"name": "Spice Farm", "time": "10:00 AM - 1:00 PM", "location": "Ponda", "description": "Tour", "cost": 1200}
    ]}
  ],
  "cost_breakdown": {"transportation": 8000, "accommodation": 9000, "activities": 1700, "food": 3000, "total": 21700, "currency": "INR"}
}` + "\n```"

const optimizerResponse = "```json\n" + `{
  "estimated_total": "19500",
  "cost_breakdown": {"total": 19500, "currency": "INR"},
  "optimization_applied": ["Guesthouse instead of resort"]
}` + "\n```"

func testProfile() core.TravelerProfile {
	return core.TravelerProfile{
		Name:         "Asha",
		HomeLocation: "Mumbai",
		Preferences: core.TravelerPreferences{
			BudgetMin:   decimal.NewFromInt(10000),
			BudgetMax:   decimal.NewFromInt(30000),
			TravelStyle: "balanced",
		},
	}
}

func testParams() map[string]any {
	return map[string]any{
		"destination": "Goa",
		"start_date":  "2026-03-01",
		"end_date":    "2026-03-02",
	}
}

func fastBus() *a2a.InMemoryBus {
	return a2a.NewInMemoryBus(func(o *a2a.BusOptions) {
		o.PollInterval = 5 * time.Millisecond
	})
}

func TestExecuteEndToEnd(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()

	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	optimizer := agent.NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)
	stop := optimizer.Listen(context.Background())
	defer stop()

	var events []monitoring.Event
	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 2 * time.Second
		o.Listeners = []monitoring.Listener{func(ev monitoring.Event) { events = append(events, ev) }}
	})

	it, err := flow.Execute(context.Background(), "corr-1", "trace-1", testProfile(), testParams())
	require.NoError(t, err)

	assert.Equal(t, "Goa", it.Destination)
	assert.Len(t, it.Segments, 3)
	assert.True(t, it.TotalCost.Total.Equal(decimal.NewFromInt(19500)), "total = %s", it.TotalCost.Total)
	assert.Equal(t, "INR", it.TotalCost.Currency)
	assert.Contains(t, it.OptimizationNotes, "Guesthouse instead of resort")
	// 85/10/5 split of the total.
	assert.True(t, it.TotalCost.BasePrice.Equal(decimal.NewFromInt(16575)), "base = %s", it.TotalCost.BasePrice)
	assert.True(t, it.TotalCost.Taxes.Equal(decimal.NewFromInt(1950)), "taxes = %s", it.TotalCost.Taxes)
	assert.True(t, it.TotalCost.Fees.Equal(decimal.NewFromInt(975)), "fees = %s", it.TotalCost.Fees)

	// Segment times come from the schedule, pinned to the trip dates.
	first := it.Segments[0]
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, 9, first.StartTime.Hour())
	assert.Equal(t, time.March, first.StartTime.Month())

	var types []monitoring.EventType
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	assert.Contains(t, types, monitoring.TaskStart)
	assert.Contains(t, types, monitoring.TaskEnd)
	assert.NotContains(t, types, monitoring.TaskError)
}

func TestExecuteFallsBackToStateStore(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()

	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	// No optimizer listening; pre-seed the trace-scoped fallback key.
	store.Set(agent.OptimizedPlanKey("trace-9"), map[string]any{
		"destination":     "Goa",
		"daily_schedule":  []any{map[string]any{"day": 1, "activities": []any{map[string]any{"name": "Beach", "time": "9:00 AM - 11:00 AM"}}}},
		"estimated_total": "15000",
		"cost_breakdown":  map[string]any{"total": 15000.0, "currency": "INR"},
	}, 0)

	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 50 * time.Millisecond
	})

	it, err := flow.Execute(context.Background(), "corr-9", "trace-9", testProfile(), testParams())
	require.NoError(t, err)
	assert.True(t, it.TotalCost.Total.Equal(decimal.NewFromInt(15000)), "fallback plan must beat the empty default")
	assert.Len(t, it.Segments, 1)
}

func TestExecuteAssemblesEmptyDefaultWhenNothingArrives(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()
	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 50 * time.Millisecond
	})

	it, err := flow.Execute(context.Background(), "corr-2", "trace-2", testProfile(), testParams())
	require.NoError(t, err, "missing optimization degrades, never fails")
	assert.Empty(t, it.Segments)
	assert.Equal(t, "Goa", it.Destination, "destination recovered from request params")
	assert.True(t, it.TotalCost.Total.IsZero())
}

func TestExecuteDiscardsUnsignedPlan(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()
	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)

	// An unsigned optimized_plan waiting in the orchestrator queue must be
	// ignored in favor of the fallback path.
	forged := a2a.NewOptimizedPlan(map[string]any{
		"estimated_total": "1",
		"cost_breakdown":  map[string]any{"total": 1.0, "currency": "INR"},
	}, "trace-3", "corr-3", "mallory", agent.OrchestratorID)
	require.True(t, bus.Publish(forged))

	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 50 * time.Millisecond
	})
	it, err := flow.Execute(context.Background(), "corr-3", "trace-3", testProfile(), testParams())
	require.NoError(t, err)
	assert.True(t, it.TotalCost.Total.IsZero(), "forged plan total must not be used")
}

func TestExecuteFailsWhenPlannerFails(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()
	planner := agent.NewPlanner(bus, store, &stubCompleter{err: errors.New("rate limited")}, testSecret)
	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 50 * time.Millisecond
	})

	_, err := flow.Execute(context.Background(), "corr-4", "trace-4", testProfile(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning stage")
}

func TestAwaitOptimizationPrefersTaskScopedKey(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()
	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	flow := New(bus, store, planner, testSecret, func(o *Options) {
		o.AwaitTimeout = 20 * time.Millisecond
	})

	taskCtx := core.NewTaskContext("corr-5", "trace-5", testProfile(), testParams())
	store.Set(agent.OptimizedPlanKey(taskCtx.TaskID), map[string]any{"estimated_total": "111"}, 0)
	store.Set(agent.OptimizedPlanKey(taskCtx.TraceID), map[string]any{"estimated_total": "222"}, 0)

	plan := flow.awaitOptimization(context.Background(), taskCtx,
		monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil))
	assert.Equal(t, "111", plan["estimated_total"], "task-scoped key must win over trace-scoped key")

	store.Delete(agent.OptimizedPlanKey(taskCtx.TaskID))
	plan = flow.awaitOptimization(context.Background(), taskCtx,
		monitoring.NewCallbacks(taskCtx.TraceID, taskCtx.CorrelationID, nil))
	assert.Equal(t, "222", plan["estimated_total"], "trace-scoped key is the second fallback")
}

func TestParseTimeRange(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s, e := parseTimeRange("9:00 AM - 11:30 AM", start, 1)
	assert.Equal(t, 9, s.Hour())
	assert.Equal(t, 11, e.Hour())
	assert.Equal(t, 30, e.Minute())
	assert.Equal(t, 1, s.Day())

	// Day 2 lands on the next calendar day.
	s, _ = parseTimeRange("10:00 AM - 1:00 PM", start, 2)
	assert.Equal(t, 2, s.Day())

	// Inverted range degrades to a one-hour window.
	s, e = parseTimeRange("2:00 PM - 1:00 PM", start, 1)
	assert.Equal(t, 14, s.Hour())
	assert.Equal(t, s.Add(time.Hour), e)

	// Unparseable input falls back to the 9-10 AM window.
	s, e = parseTimeRange("sometime in the morning", start, 1)
	assert.Equal(t, 9, s.Hour())
	assert.Equal(t, 10, e.Hour())

	// Start-only input gets a one-hour window.
	s, e = parseTimeRange("3:15 PM", start, 1)
	assert.Equal(t, 15, s.Hour())
	assert.Equal(t, s.Add(time.Hour), e)
}

func TestTripDatesFromParams(t *testing.T) {
	bus := fastBus()
	store := state.NewInMemoryStore()
	planner := agent.NewPlanner(bus, store, &stubCompleter{response: plannerResponse}, testSecret)
	flow := New(bus, store, planner, testSecret)

	taskCtx := core.NewTaskContext("corr-1", "trace-1", testProfile(), testParams())
	start, end := flow.tripDates(taskCtx, map[string]any{
		"daily_schedule": []any{map[string]any{}, map[string]any{}},
	})
	assert.Equal(t, "2026-03-01", start.Format("2006-01-02"))
	assert.Equal(t, "2026-03-02", end.Format("2006-01-02"))
}
