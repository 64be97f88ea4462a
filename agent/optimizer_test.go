package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedProposal(t *testing.T, payload map[string]any) a2a.Message {
	t.Helper()
	msg := a2a.NewProposal(payload, "trace-1", "corr-1", PlannerID, OptimizerID)
	signed, err := a2a.Sign(msg, testSecret)
	require.NoError(t, err)
	return signed
}

func proposalPayload() map[string]any {
	return map[string]any{
		"task_id":         "task-1",
		"destination":     "Goa",
		"daily_schedule":  []any{map[string]any{"day": 1, "activities": []any{}}},
		"flights":         []any{},
		"hotels":          []any{},
		"activities":      []any{},
		"estimated_total": "20500",
		"currency":        "INR",
		"budget_max":      "30000",
	}
}

const optimizerResponse = "```json\n" + `{
  "destination": "Goa",
  "daily_schedule": [{"day": 1, "activities": []}],
  "estimated_total": "18200",
  "cost_breakdown": {"total": 18200, "currency": "INR"},
  "optimization_applied": ["Swapped resort for guesthouse", "Bundled activities"]
}` + "\n```"

func TestHandleProposalPublishesOptimizedPlan(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	msg := signedProposal(t, proposalPayload())
	require.NoError(t, optimizer.HandleProposal(context.Background(), msg))

	reply := bus.Receive(context.Background(), OrchestratorID, 0, a2a.TypeOptimizedPlan)
	require.NotNil(t, reply, "optimized plan not delivered to orchestrator")
	assert.Equal(t, OptimizerID, reply.Meta.Sender)
	assert.Equal(t, "trace-1", reply.TraceID)
	assert.Equal(t, "corr-1", reply.CorrelationID)
	assert.True(t, a2a.Verify(*reply, testSecret))
	assert.Equal(t, "18200", reply.Payload["estimated_total"])
	// Structural fields dropped by the model are carried forward.
	assert.Equal(t, "task-1", reply.Payload["task_id"])
	assert.Equal(t, []any{}, reply.Payload["flights"])
}

func TestHandleProposalDoubleWritesState(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	require.NoError(t, optimizer.HandleProposal(context.Background(), signedProposal(t, proposalPayload())))

	byTask := store.Get(OptimizedPlanKey("task-1"))
	byTrace := store.Get(OptimizedPlanKey("trace-1"))
	require.NotNil(t, byTask, "plan missing under task id")
	require.NotNil(t, byTrace, "plan missing under trace id")
	assert.Equal(t, byTask, byTrace)
}

func TestHandleProposalFallsBackToCorrelationKey(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	payload := proposalPayload()
	delete(payload, "task_id")
	require.NoError(t, optimizer.HandleProposal(context.Background(), signedProposal(t, payload)))

	assert.NotNil(t, store.Get(OptimizedPlanKey("corr-1")), "plan missing under correlation id")
	assert.NotNil(t, store.Get(OptimizedPlanKey("trace-1")))
}

func TestHandleProposalRejectsBadSignature(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	msg := signedProposal(t, proposalPayload())
	msg.Payload["estimated_total"] = "1"

	require.Error(t, optimizer.HandleProposal(context.Background(), msg))
	assert.Equal(t, 0, bus.QueueSize(OrchestratorID))
	assert.Nil(t, store.Get(OptimizedPlanKey("task-1")))
}

func TestOptimizeProposalRuleBasedFallback(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{err: errors.New("api down")}, testSecret)

	optimized := optimizer.OptimizeProposal(context.Background(), proposalPayload())

	// 10% flat reduction of 20500.
	reduced, err := decimal.NewFromString(optimized["estimated_total"].(string))
	require.NoError(t, err)
	assert.True(t, reduced.Equal(decimal.NewFromInt(18450)), "reduced = %s", reduced)
	assert.NotEmpty(t, optimized["optimization_applied"])
	assert.Equal(t, "Goa", optimized["destination"])
	assert.Equal(t, true, optimized["within_budget"])
}

func TestOptimizeProposalBudgetAnnotation(t *testing.T) {
	bus := a2a.NewInMemoryBus()
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	payload := proposalPayload()
	payload["budget_max"] = "10000"
	optimized := optimizer.OptimizeProposal(context.Background(), payload)

	assert.Equal(t, false, optimized["within_budget"])
	util, ok := optimized["budget_utilization"].(float64)
	require.True(t, ok)
	assert.Greater(t, util, 1.0)
}

func TestListenRoutesProposals(t *testing.T) {
	bus := a2a.NewInMemoryBus(func(o *a2a.BusOptions) {
		o.PollInterval = 5 * time.Millisecond
	})
	store := state.NewInMemoryStore()
	optimizer := NewOptimizer(bus, store, &stubCompleter{response: optimizerResponse}, testSecret)

	stop := optimizer.Listen(context.Background())
	defer stop()

	require.True(t, bus.Publish(signedProposal(t, proposalPayload())))

	reply := bus.Receive(context.Background(), OrchestratorID, 2*time.Second, a2a.TypeOptimizedPlan)
	require.NotNil(t, reply, "optimizer did not reply while listening")
	assert.Equal(t, "18200", reply.Payload["estimated_total"])
}
