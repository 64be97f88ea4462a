package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/planmesh/planmesh/core"
	"github.com/planmesh/planmesh/logging"
	"github.com/planmesh/planmesh/model"
	"github.com/planmesh/planmesh/monitoring"
	"github.com/planmesh/planmesh/search"
	"github.com/planmesh/planmesh/state"
)

// researchTTL bounds how long research artifacts live in the shared store.
// Research goes stale faster than plans, so it gets a shorter window.
const researchTTL = 30 * time.Minute

// Research gathers destination intelligence before planning: structured
// research from the LLM plus supplementary web links. Both are persisted
// under correlation-scoped keys for the planner to pick up.
type Research struct {
	agentID   string
	store     state.Store
	completer model.Completer
	searcher  *search.Client
	logger    logging.Logger
}

// ResearchOptions configure a Research agent.
type ResearchOptions struct {
	AgentID  string
	Searcher *search.Client
	Logger   logging.Logger
}

// NewResearch constructs a Research agent. A nil searcher disables web
// lookups; LLM research still runs.
func NewResearch(store state.Store, completer model.Completer, optFns ...func(o *ResearchOptions)) *Research {
	opts := ResearchOptions{AgentID: ResearchID, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Research{
		agentID:   opts.AgentID,
		store:     store,
		completer: completer,
		searcher:  opts.Searcher,
		logger:    opts.Logger,
	}
}

// AgentID returns the research agent's identity.
func (r *Research) AgentID() string { return r.agentID }

// GatherResearch runs destination research for the task, persisting the
// structured findings and raw web results under correlation-scoped keys.
// The findings are also recorded on the task context under the "research"
// stage.
func (r *Research) GatherResearch(ctx context.Context, taskCtx *core.TaskContext, callbacks *monitoring.Callbacks) (map[string]any, error) {
	destination := taskCtx.Param("destination", "")
	if destination == "" {
		return nil, fmt.Errorf("research requires a destination parameter")
	}
	callbacks.OnTaskStart(taskCtx.TaskID, r.agentID,
		fmt.Sprintf("Researching %s", destination), nil)

	webResults := r.gatherWebResults(ctx, taskCtx, callbacks, destination)

	callbacks.OnTaskProgress(taskCtx.TaskID, 0.5, r.agentID, "Generating destination research", nil)
	prompt := BuildResearchPrompt(destination,
		taskCtx.Param("start_date", ""), taskCtx.Param("end_date", ""),
		taskCtx.TravelerProfile.Preferences.Interests)
	response, err := r.completer.Complete(ctx, model.Request{
		System:      ResearchSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.4,
		MaxTokens:   1500,
	})
	if err != nil {
		callbacks.OnTaskError(taskCtx.TaskID, err, r.agentID,
			fmt.Sprintf("Research generation failed: %v", err), nil)
		return nil, fmt.Errorf("research model call: %w", err)
	}

	findings, err := ExtractJSON(response)
	if err != nil {
		r.logger.Warn("Research response unparseable, keeping raw text",
			"agent_id", r.agentID, "error", err.Error())
		findings = map[string]any{"summary": response}
	}
	findings["destination"] = destination
	if len(webResults) > 0 {
		findings["web_results_count"] = len(webResults)
	}

	r.store.Set(ResearchKey(taskCtx.CorrelationID), findings, researchTTL)
	taskCtx.SetResult("research", findings)

	callbacks.OnTaskEnd(taskCtx.TaskID, r.agentID, "Research completed",
		map[string]any{"web_results": len(webResults)})
	return findings, nil
}

// gatherWebResults fetches supplementary links. Web search is best effort:
// failures log and return nothing rather than blocking the research stage.
func (r *Research) gatherWebResults(ctx context.Context, taskCtx *core.TaskContext, callbacks *monitoring.Callbacks, destination string) []search.Result {
	if r.searcher == nil {
		return nil
	}
	callbacks.OnTaskProgress(taskCtx.TaskID, 0.2, r.agentID, "Searching the web", nil)
	resp, err := r.searcher.Search(ctx, destination+" travel guide", 5)
	if err != nil {
		r.logger.Warn("Web search failed", "agent_id", r.agentID, "error", err.Error())
		return nil
	}
	if len(resp.Results) > 0 {
		r.store.Set(WebResultsKey(taskCtx.CorrelationID), resp.Results, researchTTL)
	}
	return resp.Results
}
