package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/agent"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/state"
)

// DefaultAwaitTimeout bounds how long the orchestrator waits for the
// optimizer's reply before falling back to the state store.
const DefaultAwaitTimeout = 30 * time.Second

const dateLayout = "2006-01-02"

// Planner orchestrates a full planning run across the research, planner
// and optimizer agents.
type Planner struct {
	bus          a2a.Bus
	store        state.Store
	research     *agent.Research
	itinerary    *agent.Planner
	secret       string
	awaitTimeout time.Duration
	logger       logging.Logger
	listeners    []monitoring.Listener
}

// Options configure a workflow Planner.
type Options struct {
	// Research is optional; when nil the research stage is skipped.
	Research     *agent.Research
	AwaitTimeout time.Duration
	Logger       logging.Logger
	// Listeners are registered on every run's callback set.
	Listeners []monitoring.Listener
}

// New constructs a workflow Planner.
func New(bus a2a.Bus, store state.Store, itinerary *agent.Planner, secret string, optFns ...func(o *Options)) *Planner {
	opts := Options{AwaitTimeout: DefaultAwaitTimeout, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = DefaultAwaitTimeout
	}
	return &Planner{
		bus:          bus,
		store:        store,
		research:     opts.Research,
		itinerary:    itinerary,
		secret:       secret,
		awaitTimeout: opts.AwaitTimeout,
		logger:       opts.Logger,
		listeners:    opts.Listeners,
	}
}

// Execute runs a complete planning workflow for the traveler and returns
// the assembled itinerary. A fresh task context is created per run; the
// correlation and trace ids thread every message, state key and event the
// run produces.
func (w *Planner) Execute(ctx context.Context, correlationID, traceID string, profile core.TravelerProfile, params map[string]any) (*core.Itinerary, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	taskCtx := core.NewTaskContext(correlationID, traceID, profile, params)
	callbacks := monitoring.NewCallbacks(traceID, correlationID, w.logger)
	for _, l := range w.listeners {
		callbacks.RegisterListener(l)
	}

	taskCtx.SetStatus(core.TaskRunning)
	callbacks.OnTaskStart(taskCtx.TaskID, agent.OrchestratorID,
		fmt.Sprintf("Planning workflow started for %s", taskCtx.Param("destination", "unknown destination")), nil)

	itinerary, err := w.run(ctx, taskCtx, callbacks)
	if err != nil {
		if ctx.Err() != nil {
			taskCtx.SetStatus(core.TaskCancelled)
		} else {
			taskCtx.SetStatus(core.TaskFailed)
		}
		callbacks.OnTaskError(taskCtx.TaskID, err, agent.OrchestratorID, "", nil)
		return nil, fmt.Errorf("workflow %s: %w", taskCtx.TaskID, err)
	}

	taskCtx.SetStatus(core.TaskCompleted)
	taskCtx.SetResult("itinerary", itinerary)
	callbacks.OnTaskEnd(taskCtx.TaskID, agent.OrchestratorID, "Planning workflow completed",
		map[string]any{"itinerary_id": itinerary.ItineraryID, "segments": len(itinerary.Segments)})
	return itinerary, nil
}

func (w *Planner) run(ctx context.Context, taskCtx *core.TaskContext, callbacks *monitoring.Callbacks) (*core.Itinerary, error) {
	// Research failures are non-fatal: the planner prompt simply carries
	// less grounding.
	if w.research != nil {
		callbacks.OnTaskProgress(taskCtx.TaskID, 0.1, agent.OrchestratorID, "Research stage", nil)
		if _, err := w.research.GatherResearch(ctx, taskCtx, callbacks); err != nil {
			w.logger.Warn("Research stage failed, continuing without research",
				"task_id", taskCtx.TaskID, "error", err.Error())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.3, agent.OrchestratorID, "Planning stage", nil)
	if _, err := w.itinerary.PlanItinerary(ctx, taskCtx, callbacks); err != nil {
		return nil, fmt.Errorf("planning stage: %w", err)
	}

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.6, agent.OrchestratorID, "Awaiting optimized plan", nil)
	plan := w.awaitOptimization(ctx, taskCtx, callbacks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.9, agent.OrchestratorID, "Assembling itinerary", nil)
	return w.createItinerary(taskCtx, plan), nil
}

// awaitOptimization waits for the optimizer's bus reply, then falls back to
// the state store under the task id, then the trace id, then an empty plan.
// The workflow always gets a plan shape to assemble from.
func (w *Planner) awaitOptimization(ctx context.Context, taskCtx *core.TaskContext, callbacks *monitoring.Callbacks) map[string]any {
	msg := w.bus.Receive(ctx, agent.OrchestratorID, w.awaitTimeout, a2a.TypeOptimizedPlan)
	if msg != nil {
		if a2a.Verify(*msg, w.secret) {
			callbacks.OnAgentMessage(taskCtx.TaskID, agent.OrchestratorID, string(a2a.TypeOptimizedPlan),
				"Received optimized plan", map[string]any{"message_id": msg.MessageID, "sender": msg.Meta.Sender})
			return msg.Payload
		}
		w.logger.Warn("Discarded optimized plan with bad signature",
			"task_id", taskCtx.TaskID, "message_id", msg.MessageID)
	}

	for _, key := range []string{
		agent.OptimizedPlanKey(taskCtx.TaskID),
		agent.OptimizedPlanKey(taskCtx.TraceID),
	} {
		if v := w.store.Get(key); v != nil {
			if plan, ok := v.(map[string]any); ok {
				w.logger.Info("Recovered optimized plan from state store",
					"task_id", taskCtx.TaskID, "key", key)
				return plan
			}
		}
	}

	w.logger.Warn("No optimized plan available, assembling empty itinerary", "task_id", taskCtx.TaskID)
	return map[string]any{
		"flights":    []any{},
		"hotels":     []any{},
		"activities": []any{},
	}
}

// createItinerary assembles the final itinerary from an optimized plan
// payload. Malformed schedule entries degrade segment by segment rather
// than failing the whole assembly.
func (w *Planner) createItinerary(taskCtx *core.TaskContext, plan map[string]any) *core.Itinerary {
	now := time.Now().UTC()
	startDate, endDate := w.tripDates(taskCtx, plan)

	var segments []core.ItinerarySegment
	for _, dayVal := range listAny(plan["daily_schedule"]) {
		day, ok := dayVal.(map[string]any)
		if !ok {
			continue
		}
		dayNum := intValue(day["day"], len(segments)/4+1)
		for i, actVal := range listAny(day["activities"]) {
			activity, ok := actVal.(map[string]any)
			if !ok {
				continue
			}
			start, end := parseTimeRange(stringValue(activity["time"]), startDate, dayNum)
			location := stringValue(activity["location"])
			if location == "" {
				location = stringValue(plan["destination"])
			}
			segments = append(segments, core.ItinerarySegment{
				SegmentID:   uuid.NewString(),
				Day:         dayNum,
				StartTime:   start,
				EndTime:     end,
				SegmentType: core.OfferActivity,
				Title:       stringValueDefault(activity["name"], "Activity"),
				Description: stringValue(activity["description"]),
				Location:    core.Location{Name: location, City: location},
				Order:       i,
			})
		}
	}

	notes := ""
	for i, n := range listAny(plan["optimization_applied"]) {
		if s, ok := n.(string); ok {
			if i > 0 {
				notes += "\n"
			}
			notes += "- " + s
		}
	}

	return &core.Itinerary{
		ItineraryID:       uuid.NewString(),
		TravelerProfile:   taskCtx.TravelerProfile,
		Destination:       stringValueDefault(plan["destination"], taskCtx.Param("destination", "")),
		StartDate:         startDate,
		EndDate:           endDate,
		Segments:          segments,
		TotalCost:         totalCost(plan),
		OptimizationNotes: notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// tripDates resolves the trip window from request parameters, defaulting to
// a window starting now and covering the scheduled days.
func (w *Planner) tripDates(taskCtx *core.TaskContext, plan map[string]any) (time.Time, time.Time) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start := now
	if s, err := time.Parse(dateLayout, taskCtx.Param("start_date", "")); err == nil {
		start = s
	}
	days := len(listAny(plan["daily_schedule"]))
	if days == 0 {
		days = 1
	}
	end := start.AddDate(0, 0, days-1)
	if e, err := time.Parse(dateLayout, taskCtx.Param("end_date", "")); err == nil && !e.Before(start) {
		end = e
	}
	return start, end
}

// parseTimeRange parses a "3:04 PM - 5:04 PM" range onto the given trip
// day. An unparseable start falls back to a 9:00-10:00 window; an end at or
// before the start becomes start plus one hour, so segments always have a
// positive duration.
func parseTimeRange(raw string, startDate time.Time, day int) (time.Time, time.Time) {
	base := startDate.AddDate(0, 0, day-1)
	at := func(t time.Time) time.Time {
		return time.Date(base.Year(), base.Month(), base.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	}

	start := time.Date(base.Year(), base.Month(), base.Day(), 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	parts := splitRange(raw)
	if len(parts) > 0 {
		if t, err := time.Parse("3:04 PM", parts[0]); err == nil {
			start = at(t)
			end = start.Add(time.Hour)
		}
	}
	if len(parts) > 1 {
		if t, err := time.Parse("3:04 PM", parts[1]); err == nil {
			end = at(t)
		}
	}
	if !end.After(start) {
		end = start.Add(time.Hour)
	}
	return start, end
}

func splitRange(raw string) []string {
	for _, sep := range []string{" - ", " to ", "-"} {
		if i := strings.Index(raw, sep); i >= 0 {
			return []string{strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+len(sep):])}
		}
	}
	if t := strings.TrimSpace(raw); t != "" {
		return []string{t}
	}
	return nil
}

// totalCost resolves the itinerary total: the plan's cost breakdown when
// present (its currency, INR by default), otherwise a USD sum over the
// per-segment offer costs. The total splits 85/10/5 into base, taxes and
// fees.
func totalCost(plan map[string]any) core.PricingBreakdown {
	currency := "INR"
	total := toDecimal(plan["estimated_total"])
	if cb, ok := plan["cost_breakdown"].(map[string]any); ok {
		if c := stringValue(cb["currency"]); c != "" {
			currency = c
		}
		if t := toDecimal(cb["total"]); t.IsPositive() {
			total = t
		}
	}
	if total.IsZero() {
		currency = "USD"
		for _, key := range []string{"flights", "hotels", "activities"} {
			for _, item := range listAny(plan[key]) {
				offer, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if pricing, ok := offer["pricing"].(map[string]any); ok {
					total = total.Add(toDecimal(pricing["total"]))
				}
			}
		}
	}
	return splitPricing(total, currency)
}
