package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/budget"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/state"
	"github.com/shopspring/decimal"
)

// Optimizer is the consumer agent. It subscribes to its bus identity,
// verifies and optimizes incoming proposals, double-writes the result to
// the state store and replies with an optimized_plan message addressed to
// the orchestrator identity.
type Optimizer struct {
	agentID    string
	receiverID string
	bus        a2a.Bus
	store      state.Store
	completer  model.Completer
	secret     string
	calculator *budget.Calculator
	logger     logging.Logger
	callbacks  *monitoring.Callbacks
}

// OptimizerOptions configure an Optimizer.
type OptimizerOptions struct {
	AgentID    string
	ReceiverID string // identity the optimized plan is addressed to
	Logger     logging.Logger
	Callbacks  *monitoring.Callbacks
}

// NewOptimizer constructs an Optimizer replying to the orchestrator
// identity by default.
func NewOptimizer(bus a2a.Bus, store state.Store, completer model.Completer, secret string, optFns ...func(o *OptimizerOptions)) *Optimizer {
	opts := OptimizerOptions{AgentID: OptimizerID, ReceiverID: OrchestratorID, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Optimizer{
		agentID:    opts.AgentID,
		receiverID: opts.ReceiverID,
		bus:        bus,
		store:      store,
		completer:  completer,
		secret:     secret,
		calculator: budget.NewCalculator(),
		logger:     opts.Logger,
		callbacks:  opts.Callbacks,
	}
}

// AgentID returns the optimizer's bus identity.
func (o *Optimizer) AgentID() string { return o.agentID }

// Listen subscribes the optimizer to its identity on the bus. Each proposal
// is handled on its own goroutine so the publisher's dispatch loop is never
// blocked by a model call. The returned function cancels the subscription.
func (o *Optimizer) Listen(ctx context.Context) func() {
	subID := o.bus.Subscribe(o.agentID, func(msg a2a.Message) {
		if msg.MessageType != a2a.TypeProposal {
			return
		}
		go func() {
			if err := o.HandleProposal(ctx, msg); err != nil {
				o.logger.Error("Proposal handling failed",
					"agent_id", o.agentID, "message_id", msg.MessageID, "error", err.Error())
			}
		}()
	})
	return func() { o.bus.Unsubscribe(o.agentID, subID) }
}

// HandleProposal verifies a proposal message, optimizes its plan, persists
// the result and publishes the optimized_plan reply.
func (o *Optimizer) HandleProposal(ctx context.Context, msg a2a.Message) error {
	if !a2a.Verify(msg, o.secret) {
		o.logger.Warn("Rejected proposal with bad signature",
			"agent_id", o.agentID, "message_id", msg.MessageID, "sender", msg.Meta.Sender)
		return fmt.Errorf("proposal %s failed signature verification", msg.MessageID)
	}

	optimized := o.OptimizeProposal(ctx, msg.Payload)

	// Double-write: once under the task id carried in the proposal when
	// present, and always under the trace id, so consumers can recover the
	// plan from either handle.
	if taskID := stringField(msg.Payload, "task_id", ""); taskID != "" {
		o.store.Set(OptimizedPlanKey(taskID), optimized, stateTTL)
	} else {
		o.store.Set(OptimizedPlanKey(msg.CorrelationID), optimized, stateTTL)
	}
	o.store.Set(OptimizedPlanKey(msg.TraceID), optimized, stateTTL)

	reply := a2a.NewOptimizedPlan(optimized, msg.TraceID, msg.CorrelationID, o.agentID, o.receiverID)
	signed, err := a2a.Sign(reply, o.secret)
	if err != nil {
		return fmt.Errorf("sign optimized plan: %w", err)
	}
	if !o.bus.Publish(signed) {
		return fmt.Errorf("optimized plan for trace %s could not be delivered to %s", msg.TraceID, o.receiverID)
	}

	if o.callbacks != nil {
		o.callbacks.OnAgentMessage(msg.CorrelationID, o.agentID, string(a2a.TypeOptimizedPlan),
			"Published optimized plan",
			map[string]any{"message_id": signed.MessageID, "in_reply_to": msg.MessageID})
	}
	return nil
}

// OptimizeProposal produces an optimized plan payload for the proposal. A
// working model path uses the LLM; any failure degrades to rule-based
// optimization rather than dropping the plan.
func (o *Optimizer) OptimizeProposal(ctx context.Context, proposal map[string]any) map[string]any {
	budgetMax := numberAsString(proposal["budget_max"], "")
	currency := stringField(proposal, "currency", "INR")

	start := time.Now()
	response, err := o.completer.Complete(ctx, model.Request{
		System:      OptimizationSystemPrompt,
		Prompt:      BuildOptimizationPrompt(proposal, budgetMax, currency),
		Temperature: 0.3,
		MaxTokens:   3000,
	})
	if err != nil {
		o.logger.Warn("Optimization model call failed, using rule-based fallback",
			"agent_id", o.agentID, "error", err.Error())
		return o.basicOptimization(proposal)
	}
	o.logger.Info("Plan optimized", "agent_id", o.agentID, "duration", time.Since(start))

	optimized, err := ExtractJSON(response)
	if err != nil {
		o.logger.Warn("Optimization response unparseable, using rule-based fallback",
			"agent_id", o.agentID, "error", err.Error())
		return o.basicOptimization(proposal)
	}
	o.carryForward(proposal, optimized)
	o.annotateBudget(proposal, optimized)
	return optimized
}

// basicOptimization applies a flat 10% cost reduction when the model is
// unavailable, preserving the proposal's structure.
func (o *Optimizer) basicOptimization(proposal map[string]any) map[string]any {
	optimized := make(map[string]any, len(proposal)+2)
	for k, v := range proposal {
		optimized[k] = v
	}

	total := decimalField(proposal, "estimated_total")
	reduced := total.Mul(decimal.NewFromFloat(0.9)).Round(2)
	optimized["estimated_total"] = reduced.String()
	if cb := mapField(proposal, "cost_breakdown"); cb != nil {
		adjusted := make(map[string]any, len(cb))
		for k, v := range cb {
			adjusted[k] = v
		}
		adjusted["total"] = reduced.String()
		optimized["cost_breakdown"] = adjusted
	}
	optimized["optimization_applied"] = []any{
		"Applied 10% cost reduction across all segments",
		"Recommended advance booking for better rates",
	}
	o.annotateBudget(proposal, optimized)
	return optimized
}

// carryForward restores structural fields the model tends to drop from its
// response so downstream consumers always see a complete plan.
func (o *Optimizer) carryForward(proposal, optimized map[string]any) {
	for _, key := range []string{"task_id", "destination", "daily_schedule", "flights", "hotels", "activities", "currency"} {
		if _, ok := optimized[key]; !ok {
			if v, ok := proposal[key]; ok {
				optimized[key] = v
			}
		}
	}
	if _, ok := optimized["estimated_total"]; !ok {
		if cb := mapField(optimized, "cost_breakdown"); cb != nil {
			optimized["estimated_total"] = numberAsString(cb["total"], "0")
		} else if v, ok := proposal["estimated_total"]; ok {
			optimized["estimated_total"] = v
		}
	}
}

// annotateBudget records whether the optimized total fits the proposal's
// budget cap and how much of it is used.
func (o *Optimizer) annotateBudget(proposal, optimized map[string]any) {
	budgetMax := decimalField(proposal, "budget_max")
	if budgetMax.IsZero() {
		return
	}
	total := decimalField(optimized, "estimated_total")
	within, utilization := o.calculator.WithinBudget(total, budgetMax)
	optimized["within_budget"] = within
	optimized["budget_utilization"] = utilization
}
