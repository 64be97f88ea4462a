package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/state"
	"github.com/shopspring/decimal"
)

// stateTTL bounds how long intermediate planning artifacts live in the
// shared store.
const stateTTL = time.Hour

// Planner is the producer agent. It turns a task context into an itinerary
// proposal via the LLM, persists its working artifacts to the state store
// and publishes a signed proposal message to the optimizer identity.
type Planner struct {
	agentID    string
	receiverID string
	bus        a2a.Bus
	store      state.Store
	completer  model.Completer
	secret     string
	logger     logging.Logger
}

// PlannerOptions configure a Planner.
type PlannerOptions struct {
	AgentID    string
	ReceiverID string // identity the proposal is addressed to
	Logger     logging.Logger
}

// NewPlanner constructs a Planner publishing to the optimizer identity by
// default.
func NewPlanner(bus a2a.Bus, store state.Store, completer model.Completer, secret string, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{AgentID: PlannerID, ReceiverID: OptimizerID, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Planner{
		agentID:    opts.AgentID,
		receiverID: opts.ReceiverID,
		bus:        bus,
		store:      store,
		completer:  completer,
		secret:     secret,
		logger:     opts.Logger,
	}
}

// AgentID returns the planner's bus identity.
func (p *Planner) AgentID() string { return p.agentID }

// PlanItinerary generates a proposal for the task and publishes it. The
// returned map is the proposal payload. An LLM transport error is fatal to
// the stage; a malformed LLM response degrades to an empty plan skeleton.
func (p *Planner) PlanItinerary(ctx context.Context, taskCtx *core.TaskContext, callbacks *monitoring.Callbacks) (map[string]any, error) {
	callbacks.OnTaskStart(taskCtx.TaskID, p.agentID,
		fmt.Sprintf("Planner started for %s", taskCtx.TravelerProfile.Name), nil)

	research := p.loadResearch(taskCtx)

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.2, p.agentID, "Building planning prompt with research data", nil)
	prompt := BuildPlanningPrompt(taskCtx.TravelerProfile, taskCtx.RequestParams, research)

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.5, p.agentID, "Generating itinerary", nil)
	start := time.Now()
	response, err := p.completer.Complete(ctx, model.Request{
		System:      PlanningSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   3000,
	})
	if err != nil {
		callbacks.OnTaskError(taskCtx.TaskID, err, p.agentID, fmt.Sprintf("Itinerary generation failed: %v", err), nil)
		return nil, fmt.Errorf("planner model call: %w", err)
	}
	p.logger.Info("Itinerary generated", "agent_id", p.agentID, "duration", time.Since(start))

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.7, p.agentID, "Parsing generated itinerary", nil)
	itinerary, err := ExtractJSON(response)
	if err != nil {
		// Malformed model output is recoverable: continue with an empty
		// skeleton so the run can still complete on fallbacks.
		p.logger.Error("Failed to parse generated itinerary", "error", err.Error())
		itinerary = map[string]any{
			"destination":    taskCtx.Param("destination", ""),
			"daily_schedule": []any{},
		}
	}

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.9, p.agentID, "Creating travel proposal", nil)
	flights := p.transportOffers(mapField(itinerary, "transportation"))
	hotels := p.accommodationOffers(mapField(itinerary, "accommodation"))
	dailySchedule := listField(itinerary, "daily_schedule")
	activities := p.activityOffers(dailySchedule)

	p.store.Set(LLMItineraryKey(taskCtx.TaskID), itinerary, stateTTL)
	p.store.Set("flights:"+taskCtx.TaskID, flights, stateTTL)
	p.store.Set("hotels:"+taskCtx.TaskID, hotels, stateTTL)
	p.store.Set("activities:"+taskCtx.TaskID, activities, stateTTL)

	payload, err := p.buildProposalPayload(taskCtx, itinerary, dailySchedule, flights, hotels, activities)
	if err != nil {
		return nil, fmt.Errorf("build proposal payload: %w", err)
	}

	msg := a2a.NewProposal(payload, taskCtx.TraceID, taskCtx.CorrelationID, p.agentID, p.receiverID)
	signed, err := a2a.Sign(msg, p.secret)
	if err != nil {
		return nil, fmt.Errorf("sign proposal: %w", err)
	}
	if !p.bus.Publish(signed) {
		return nil, fmt.Errorf("proposal for task %s could not be delivered to %s", taskCtx.TaskID, p.receiverID)
	}

	callbacks.OnAgentMessage(taskCtx.TaskID, p.agentID, string(a2a.TypeProposal),
		"Sent generated proposal to optimizer",
		map[string]any{"message_id": signed.MessageID, "days": len(dailySchedule)})
	callbacks.OnTaskEnd(taskCtx.TaskID, p.agentID, "Planner completed proposal",
		map[string]any{"proposal_id": signed.MessageID})

	taskCtx.SetResult("proposal", payload)
	return payload, nil
}

// loadResearch prefers the task's in-context research stage output and
// falls back to the correlation-scoped state key written by the research
// agent.
func (p *Planner) loadResearch(taskCtx *core.TaskContext) map[string]any {
	if v, ok := taskCtx.Result("research"); ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	if v := p.store.Get(ResearchKey(taskCtx.CorrelationID)); v != nil {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func (p *Planner) buildProposalPayload(taskCtx *core.TaskContext, itinerary map[string]any, dailySchedule []any, flights, hotels, activities []core.Offer) (map[string]any, error) {
	flightMaps, err := toPayloadList(flights)
	if err != nil {
		return nil, err
	}
	hotelMaps, err := toPayloadList(hotels)
	if err != nil {
		return nil, err
	}
	activityMaps, err := toPayloadList(activities)
	if err != nil {
		return nil, err
	}
	costBreakdown := mapField(itinerary, "cost_breakdown")
	estimatedTotal := "0"
	currency := "INR"
	if costBreakdown != nil {
		estimatedTotal = numberAsString(costBreakdown["total"], "0")
		currency = stringField(costBreakdown, "currency", currency)
	}
	if dailySchedule == nil {
		dailySchedule = []any{}
	}
	payload := map[string]any{
		// task_id rides along so the optimizer can key its state writes
		// to the id the workflow falls back on.
		"task_id":         taskCtx.TaskID,
		"destination":     stringField(itinerary, "destination", taskCtx.Param("destination", "")),
		"daily_schedule":  dailySchedule,
		"flights":         flightMaps,
		"hotels":          hotelMaps,
		"activities":      activityMaps,
		"estimated_total": estimatedTotal,
		"currency":        currency,
		"budget_min":      taskCtx.TravelerProfile.Preferences.BudgetMin,
		"budget_max":      taskCtx.TravelerProfile.Preferences.BudgetMax,
	}
	if costBreakdown != nil {
		payload["cost_breakdown"] = costBreakdown
	}
	return payload, nil
}

// transportOffers converts generated transportation data into offers.
func (p *Planner) transportOffers(transport map[string]any) []core.Offer {
	if transport == nil {
		return nil
	}
	toDest := mapField(transport, "to_destination")
	if toDest == nil {
		return nil
	}
	cost := decimalField(toDest, "cost")
	method := stringField(toDest, "method", "Transport")
	now := time.Now().UTC()
	return []core.Offer{{
		OfferID:     "transport-" + shortID(),
		OfferType:   core.OfferFlight,
		Provider:    method,
		Title:       method,
		Description: fmt.Sprintf("Duration: %s", stringField(toDest, "duration", "N/A")),
		Pricing:     flatPricing(cost, "INR"),
		StartTime:   &now,
		Rating:      4.0,
	}}
}

// accommodationOffers converts generated accommodation data into offers.
func (p *Planner) accommodationOffers(accommodation map[string]any) []core.Offer {
	if accommodation == nil {
		return nil
	}
	name := stringField(accommodation, "name", "Accommodation")
	total := decimalField(accommodation, "total_cost")
	perNight := decimalField(accommodation, "cost_per_night")
	pricing := core.PricingBreakdown{
		BasePrice: perNight,
		Taxes:     decimal.Zero,
		Fees:      decimal.Zero,
		Total:     total,
		Currency:  "INR",
	}
	return []core.Offer{{
		OfferID:     "hotel-" + shortID(),
		OfferType:   core.OfferHotel,
		Provider:    name,
		Title:       name,
		Description: stringField(accommodation, "recommendation", ""),
		Pricing:     pricing,
		Location:    &core.Location{Name: name},
		Rating:      4.0,
	}}
}

// activityOffers converts the generated daily schedule into activity offers.
func (p *Planner) activityOffers(dailySchedule []any) []core.Offer {
	var offers []core.Offer
	for _, dayVal := range dailySchedule {
		day, ok := dayVal.(map[string]any)
		if !ok {
			continue
		}
		for _, actVal := range listField(day, "activities") {
			activity, ok := actVal.(map[string]any)
			if !ok {
				continue
			}
			location := stringField(activity, "location", "Local Activity")
			offers = append(offers, core.Offer{
				OfferID:   "activity-" + shortID(),
				OfferType: core.OfferActivity,
				Provider:  location,
				Title:     stringField(activity, "name", "Activity"),
				Description: fmt.Sprintf("%s: %s",
					stringField(activity, "time", ""), stringField(activity, "description", "")),
				Pricing:  flatPricing(decimalField(activity, "cost"), "INR"),
				Location: &core.Location{Name: location, City: location},
				Rating:   4.5,
			})
		}
	}
	return offers
}

func flatPricing(total decimal.Decimal, currency string) core.PricingBreakdown {
	return core.PricingBreakdown{
		BasePrice: total,
		Taxes:     decimal.Zero,
		Fees:      decimal.Zero,
		Total:     total,
		Currency:  currency,
	}
}

// decimalField reads a payload number (float, int or string) as a decimal,
// zero when absent or unparseable.
func decimalField(m map[string]any, key string) decimal.Decimal {
	switch v := m[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case decimal.Decimal:
		return v
	}
	return decimal.Zero
}

// numberAsString renders a payload number as its textual form.
func numberAsString(v any, def string) string {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n).String()
	case int:
		return fmt.Sprintf("%d", n)
	case int64:
		return fmt.Sprintf("%d", n)
	case string:
		if n != "" {
			return n
		}
	case decimal.Decimal:
		return n.String()
	}
	return def
}

func shortID() string { return uuid.NewString()[:8] }
