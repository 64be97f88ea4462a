package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planmesh/planmesh/core"
)

// BuildPlanningPrompt assembles the itinerary generation prompt from the
// traveler profile, request parameters and prior research. The model is
// instructed to answer with a single JSON object whose shape the planner
// knows how to unpack (transportation, accommodation, daily_schedule,
// cost_breakdown).
func BuildPlanningPrompt(profile core.TravelerProfile, params map[string]any, research map[string]any) string {
	destination := stringValue(params, "destination", "the destination")
	startDate := stringValue(params, "start_date", "")
	endDate := stringValue(params, "end_date", "")
	currency := stringValue(params, "currency", "INR")

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a trip to %s for %s (home: %s).\n", destination, profile.Name, profile.HomeLocation)
	fmt.Fprintf(&b, "Travel dates: %s to %s.\n", startDate, endDate)
	fmt.Fprintf(&b, "Budget: %s to %s %s. Travel style: %s.\n",
		profile.Preferences.BudgetMin.StringFixed(0), profile.Preferences.BudgetMax.StringFixed(0),
		currency, profile.Preferences.TravelStyle)
	if len(profile.Preferences.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(profile.Preferences.Interests, ", "))
	}
	if len(profile.Preferences.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s.\n", strings.Join(profile.Preferences.DietaryRestrictions, ", "))
	}
	if len(research) > 0 {
		if data, err := json.Marshal(research); err == nil {
			fmt.Fprintf(&b, "\nDestination research to ground your plan:\n%s\n", data)
		}
	}
	b.WriteString(`
Respond with a single JSON object, no prose, using this shape:
{
  "destination": "...",
  "transportation": {"to_destination": {"method": "...", "duration": "...", "cost": 0}},
  "accommodation": {"name": "...", "cost_per_night": 0, "total_cost": 0, "recommendation": "..."},
  "daily_schedule": [
    {"day": 1, "activities": [
      {"name": "...", "time": "9:00 AM - 11:00 AM", "location": "...", "description": "...", "cost": 0}
    ]}
  ],
  "cost_breakdown": {"transportation": 0, "accommodation": 0, "activities": 0, "food": 0, "total": 0, "currency": "` + currency + `"}
}`)
	return b.String()
}

// PlanningSystemPrompt is the system instruction for itinerary generation.
const PlanningSystemPrompt = "You are an expert travel planner. Generate detailed, realistic travel itineraries in JSON format only. Include accurate cost estimates, specific hotels, flights, and daily activities."

// BuildOptimizationPrompt assembles the cost-optimization prompt for a
// received proposal.
func BuildOptimizationPrompt(proposal map[string]any, budgetMax, currency string) string {
	var b strings.Builder
	b.WriteString("Optimize the following travel itinerary for cost while keeping quality.\n")
	fmt.Fprintf(&b, "Hard budget cap: %s %s.\n", budgetMax, currency)
	if data, err := json.Marshal(proposal); err == nil {
		fmt.Fprintf(&b, "\nItinerary proposal:\n%s\n", data)
	}
	b.WriteString(`
Respond with a single JSON object, no prose: the optimized itinerary in the
same shape as the input, plus "optimization_applied": ["...specific changes..."]
and an updated "cost_breakdown".`)
	return b.String()
}

// OptimizationSystemPrompt is the system instruction for plan optimization.
const OptimizationSystemPrompt = "You are a budget optimization expert. Analyze travel itineraries and suggest cost-cutting measures while maintaining quality. Return JSON only with the optimized itinerary and specific changes made."

// BuildResearchPrompt assembles the destination research prompt.
func BuildResearchPrompt(destination, startDate, endDate string, interests []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research %s for a trip from %s to %s.\n", destination, startDate, endDate)
	if len(interests) > 0 {
		fmt.Fprintf(&b, "The traveler cares about: %s.\n", strings.Join(interests, ", "))
	}
	b.WriteString(`
Respond with a single JSON object, no prose:
{
  "weather_summary": "...",
  "top_attractions": ["..."],
  "accommodation_suggestions": ["..."],
  "estimated_daily_cost": 0,
  "currency": "...",
  "travel_tips": ["..."],
  "best_time_to_visit": "..."
}`)
	return b.String()
}

// ResearchSystemPrompt is the system instruction for destination research.
const ResearchSystemPrompt = "You are a travel research assistant. Provide factual, current destination information as JSON only."

func stringValue(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
