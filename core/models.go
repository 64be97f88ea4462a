package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TravelerPreferences captures the personalization inputs for planning.
// Budget bounds are fixed-point decimals so they survive canonical
// serialization without floating point drift.
type TravelerPreferences struct {
	BudgetMin           decimal.Decimal `json:"budget_min"`
	BudgetMax           decimal.Decimal `json:"budget_max"`
	TravelStyle         string          `json:"travel_style"` // budget, balanced, luxury
	Interests           []string        `json:"interests,omitempty"`
	AccessibilityNeeds  []string        `json:"accessibility_needs,omitempty"`
	DietaryRestrictions []string        `json:"dietary_restrictions,omitempty"`
}

// TravelerProfile is the complete traveler identity plus preferences.
type TravelerProfile struct {
	TravelerID      string              `json:"traveler_id"`
	Name            string              `json:"name"`
	Email           string              `json:"email,omitempty"`
	HomeLocation    string              `json:"home_location"`
	Preferences     TravelerPreferences `json:"preferences"`
	LoyaltyPrograms map[string]string   `json:"loyalty_programs,omitempty"`
}

// Location is a geographic place referenced by offers and segments.
type Location struct {
	Name      string   `json:"name"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
}

// PricingBreakdown is the detailed price decomposition for an offer or a
// whole itinerary. All amounts are decimals in Currency.
type PricingBreakdown struct {
	BasePrice decimal.Decimal `json:"base_price"`
	Taxes     decimal.Decimal `json:"taxes"`
	Fees      decimal.Decimal `json:"fees"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// OfferType enumerates the bookable offer categories.
type OfferType string

// Offer type values.
const (
	OfferFlight    OfferType = "flight"
	OfferHotel     OfferType = "hotel"
	OfferActivity  OfferType = "activity"
	OfferTransport OfferType = "transport"
	OfferPackage   OfferType = "package"
)

// Offer is a bookable travel option from a provider.
type Offer struct {
	OfferID     string           `json:"offer_id"`
	OfferType   OfferType        `json:"offer_type"`
	Provider    string           `json:"provider"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Pricing     PricingBreakdown `json:"pricing"`
	StartTime   *time.Time       `json:"start_time,omitempty"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Location    *Location        `json:"location,omitempty"`
	Capacity    *int             `json:"capacity,omitempty"`
	Rating      float64          `json:"rating,omitempty"`
	Amenities   []string         `json:"amenities,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// ItinerarySegment is a single scheduled block within an itinerary day.
type ItinerarySegment struct {
	SegmentID   string    `json:"segment_id"`
	Day         int       `json:"day"` // 1-indexed
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	SegmentType OfferType `json:"segment_type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    Location  `json:"location"`
	Offer       *Offer    `json:"offer,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Order       int       `json:"order"` // order within the day
}

// Itinerary is the final composite planning result.
type Itinerary struct {
	ItineraryID       string             `json:"itinerary_id"`
	TravelerProfile   TravelerProfile    `json:"traveler_profile"`
	Destination       string             `json:"destination"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	Segments          []ItinerarySegment `json:"segments"`
	TotalCost         PricingBreakdown   `json:"total_cost"`
	OptimizationNotes string             `json:"optimization_notes,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Markdown renders the itinerary as a human-readable report, segments
// grouped by day and sorted by in-day order.
func (it *Itinerary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Travel Itinerary: %s\n\n", it.Destination)
	fmt.Fprintf(&b, "**Traveler:** %s\n", it.TravelerProfile.Name)
	fmt.Fprintf(&b, "**Dates:** %s - %s\n", it.StartDate.Format("January 02, 2006"), it.EndDate.Format("January 02, 2006"))
	fmt.Fprintf(&b, "**Total Cost:** %s %s\n\n---\n\n", it.TotalCost.Currency, it.TotalCost.Total.StringFixed(2))

	byDay := map[int][]ItinerarySegment{}
	days := []int{}
	sorted := make([]ItinerarySegment, len(it.Segments))
	copy(sorted, it.Segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].Order < sorted[j].Order
	})
	for _, seg := range sorted {
		if _, ok := byDay[seg.Day]; !ok {
			days = append(days, seg.Day)
		}
		byDay[seg.Day] = append(byDay[seg.Day], seg)
	}

	for _, day := range days {
		fmt.Fprintf(&b, "## Day %d\n\n", day)
		for _, seg := range byDay[day] {
			fmt.Fprintf(&b, "### %s - %s\n", seg.StartTime.Format("3:04 PM"), seg.Title)
			fmt.Fprintf(&b, "**Location:** %s, %s\n", seg.Location.Name, seg.Location.City)
			fmt.Fprintf(&b, "**Duration:** %s - %s\n\n", seg.StartTime.Format("3:04 PM"), seg.EndTime.Format("3:04 PM"))
			b.WriteString(seg.Description)
			b.WriteString("\n")
			if seg.Offer != nil {
				fmt.Fprintf(&b, "\n**Cost:** %s %s\n", seg.Offer.Pricing.Currency, seg.Offer.Pricing.Total.StringFixed(2))
			}
			if seg.Notes != "" {
				fmt.Fprintf(&b, "\n*Note: %s*\n", seg.Notes)
			}
			b.WriteString("\n---\n\n")
		}
	}

	if it.OptimizationNotes != "" {
		b.WriteString("## Optimization Notes\n\n")
		b.WriteString(it.OptimizationNotes)
		b.WriteString("\n")
	}
	return b.String()
}
