package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testItinerary() *Itinerary {
	day := func(d, order, hour int, title string) ItinerarySegment {
		return ItinerarySegment{
			SegmentID:   title,
			Day:         d,
			Order:       order,
			StartTime:   time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC),
			EndTime:     time.Date(2026, 3, d, hour+1, 0, 0, 0, time.UTC),
			SegmentType: OfferActivity,
			Title:       title,
			Location:    Location{Name: "Goa", City: "Goa"},
		}
	}
	return &Itinerary{
		ItineraryID: "it-1",
		TravelerProfile: TravelerProfile{
			Name: "Asha",
			Preferences: TravelerPreferences{
				BudgetMin: decimal.NewFromInt(500),
				BudgetMax: decimal.NewFromInt(2000),
			},
		},
		Destination: "Goa",
		StartDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		// Deliberately unordered.
		Segments: []ItinerarySegment{
			day(2, 0, 9, "Spice Farm"),
			day(1, 1, 14, "Fort Walk"),
			day(1, 0, 9, "Beach Morning"),
		},
		TotalCost: PricingBreakdown{
			BasePrice: decimal.RequireFromString("1275.00"),
			Taxes:     decimal.RequireFromString("150.00"),
			Fees:      decimal.RequireFromString("75.00"),
			Total:     decimal.RequireFromString("1500.00"),
			Currency:  "INR",
		},
	}
}

func TestMarkdownOrdersByDayAndOrder(t *testing.T) {
	md := testItinerary().Markdown()

	beach := strings.Index(md, "Beach Morning")
	fort := strings.Index(md, "Fort Walk")
	spice := strings.Index(md, "Spice Farm")
	if beach < 0 || fort < 0 || spice < 0 {
		t.Fatalf("missing segments in markdown:\n%s", md)
	}
	if !(beach < fort && fort < spice) {
		t.Fatal("segments not ordered by day then in-day order")
	}
	if !strings.Contains(md, "## Day 1") || !strings.Contains(md, "## Day 2") {
		t.Fatal("missing day headings")
	}
	if !strings.Contains(md, "INR 1500.00") {
		t.Fatalf("total cost missing:\n%s", md)
	}
	if !strings.Contains(md, "9:00 AM") {
		t.Fatal("segment times should render in 12-hour clock")
	}
}

func TestMarkdownIncludesOptimizationNotes(t *testing.T) {
	it := testItinerary()
	it.OptimizationNotes = "- Booked hotels midweek"
	md := it.Markdown()
	if !strings.Contains(md, "## Optimization Notes") || !strings.Contains(md, "Booked hotels midweek") {
		t.Fatal("optimization notes missing from markdown")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	for status, terminal := range map[TaskStatus]bool{
		TaskPending:   false,
		TaskRunning:   false,
		TaskCompleted: true,
		TaskFailed:    true,
		TaskCancelled: true,
	} {
		if status.Terminal() != terminal {
			t.Fatalf("Terminal(%s) = %v", status, !terminal)
		}
	}
}

func TestTaskContextLifecycle(t *testing.T) {
	profile := TravelerProfile{Name: "Asha"}
	taskCtx := NewTaskContext("corr-1", "trace-1", profile, map[string]any{"destination": "Goa"})

	if taskCtx.TaskID == "" {
		t.Fatal("task id must be generated")
	}
	if taskCtx.Status != TaskPending {
		t.Fatalf("new task status = %s", taskCtx.Status)
	}
	if taskCtx.Param("destination", "x") != "Goa" {
		t.Fatal("param lookup failed")
	}
	if taskCtx.Param("missing", "fallback") != "fallback" {
		t.Fatal("param default failed")
	}

	taskCtx.SetStatus(TaskRunning)
	taskCtx.SetResult("research", map[string]any{"ok": true})
	if v, ok := taskCtx.Result("research"); !ok || v == nil {
		t.Fatal("stage result not recorded")
	}
	if taskCtx.Status != TaskRunning {
		t.Fatal("status transition lost")
	}
}
