// Package planmesh provides the top-level facade for the multi-agent travel
// planning system: a signed agent-to-agent message bus, a TTL state store,
// planner/optimizer/research agents and the orchestrating workflow, wired
// together from a single Settings value.
package planmesh

import (
	"context"

	"github.com/google/uuid"
	"github.com/planmesh/planmesh/a2a"
	"github.com/planmesh/planmesh/agent"
	"github.com/planmesh/planmesh/config"
	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/search"
	"github.com/planmesh/planmesh/state"
	"github.com/planmesh/planmesh/workflow"
)

// Options configure the facade.
type Options struct {
	Logger logging.Logger
	// Searcher enables web lookups in the research stage when set.
	Searcher *search.Client
	// ResearchModel powers the research stage; nil skips research.
	ResearchModel model.Completer
	// Listeners receive every monitoring event of every run.
	Listeners []monitoring.Listener
}

// Planmesh wires the bus, store, agents and workflow for planning runs.
type Planmesh struct {
	settings  config.Settings
	bus       a2a.Bus
	store     state.Store
	optimizer *agent.Optimizer
	flow      *workflow.Planner
	logger    logging.Logger
}

// New assembles a Planmesh from settings and the two model completers. The
// planner model generates itineraries; the optimizer model reworks them
// within budget.
func New(settings config.Settings, plannerModel, optimizerModel model.Completer, optFns ...func(o *Options)) (*Planmesh, error) {
	opts := Options{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	store, err := state.New(settings.StateBackend)
	if err != nil {
		return nil, err
	}
	bus := a2a.NewInMemoryBus(func(o *a2a.BusOptions) {
		o.Logger = opts.Logger
	})

	planner := agent.NewPlanner(bus, store, plannerModel, settings.SharedSecret, func(o *agent.PlannerOptions) {
		o.Logger = opts.Logger
	})
	optimizer := agent.NewOptimizer(bus, store, optimizerModel, settings.SharedSecret, func(o *agent.OptimizerOptions) {
		o.Logger = opts.Logger
	})

	var research *agent.Research
	if opts.ResearchModel != nil {
		research = agent.NewResearch(store, opts.ResearchModel, func(o *agent.ResearchOptions) {
			o.Searcher = opts.Searcher
			o.Logger = opts.Logger
		})
	}

	flow := workflow.New(bus, store, planner, settings.SharedSecret, func(o *workflow.Options) {
		o.Research = research
		o.AwaitTimeout = settings.AwaitTimeout.Std()
		o.Logger = opts.Logger
		o.Listeners = opts.Listeners
	})

	return &Planmesh{
		settings:  settings,
		bus:       bus,
		store:     store,
		optimizer: optimizer,
		flow:      flow,
		logger:    opts.Logger,
	}, nil
}

// Plan runs one complete planning workflow for the traveler. The optimizer
// listens on the bus for the duration of the run.
func (p *Planmesh) Plan(ctx context.Context, profile core.TravelerProfile, params map[string]any) (*core.Itinerary, error) {
	stop := p.optimizer.Listen(ctx)
	defer stop()
	return p.flow.Execute(ctx, uuid.NewString(), uuid.NewString(), profile, params)
}

// Bus exposes the underlying message bus, mainly for history inspection.
func (p *Planmesh) Bus() a2a.Bus { return p.bus }

// Store exposes the underlying state store.
func (p *Planmesh) Store() state.Store { return p.store }
