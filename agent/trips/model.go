package trips

import (
	"encoding/json"
	"regexp"
	"strings"

	contractx "viajero/agent/contract"
)

type TripStatus string

const (
	StatusPlanned   TripStatus = "planned"
	StatusCancelled TripStatus = "cancelled"
)

const (
	SegmentFlight = "flight"
	SegmentHotel  = "hotel"
)

// Segment is one raw booking-relevant fragment attached to a trip. Flight
// segments carry a single Date; hotel segments carry a Checkin/Checkout
// pair. Payload keeps the provider fragment verbatim for the frontend.
type Segment struct {
	Type     string          `json:"type"`
	Date     string          `json:"date,omitempty"`
	Checkin  string          `json:"checkin,omitempty"`
	Checkout string          `json:"checkout,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// DestinationInfo is the destination provider's summary attached to a trip.
type DestinationInfo struct {
	Summary   string              `json:"summary,omitempty"`
	POIs      []contractx.POI     `json:"pois,omitempty"`
	Plan      []contractx.DayPlan `json:"plan_sugerido,omitempty"`
	UpdatedAt string              `json:"updated_at,omitempty"`
}

// BudgetEntry is the last estimated total for a trip.
type BudgetEntry struct {
	Total     float64 `json:"total"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// Trip is the ledger's unit of state. StartDate and EndDate are pure
// derivations of segment contents: they are recomputed after every segment
// mutation, never hand-edited, and always satisfy EndDate >= StartDate.
type Trip struct {
	TripID       string           `json:"trip_id"`
	CreatedAt    string           `json:"created_at,omitempty"`
	Title        string           `json:"title,omitempty"`
	City         string           `json:"city"`
	IATA         string           `json:"iata,omitempty"`
	Status       TripStatus       `json:"status"`
	Segments     []Segment        `json:"segments"`
	StartDate    string           `json:"start_date,omitempty"`
	EndDate      string           `json:"end_date,omitempty"`
	Budget       *BudgetEntry     `json:"budget,omitempty"`
	Destination  *DestinationInfo `json:"destination,omitempty"`
	AgentsCalled []string         `json:"agents_called,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// TravelLog is the whole per-user ledger record. Every mutation is a
// read-modify-write of this record; callers must serialize turns per user.
type TravelLog struct {
	UserID    string  `json:"user_id"`
	CreatedAt string  `json:"created_at,omitempty"`
	Trips     []*Trip `json:"trips"`
}

var (
	slugDropPattern  = regexp.MustCompile(`[^a-zA-Z0-9\-_. ]+`)
	slugSpacePattern = regexp.MustCompile(`\s+`)
)

func slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(slugDropPattern.ReplaceAllString(text, "")))
	text = slugSpacePattern.ReplaceAllString(text, "-")
	if text == "" {
		return "trip"
	}
	if len(text) > 60 {
		return text[:60]
	}
	return text
}

// tripID derives a stable identifier from start date and city so that
// repeated planning of the same city converges on the same record.
func tripID(startDate, city string) string {
	return strings.ReplaceAll(startDate, "-", "") + "_" + slugify(city)
}

func autoTitle(city, startDate, endDate string) string {
	switch {
	case startDate != "" && endDate != "":
		return city + " (" + startDate + " → " + endDate + ")"
	case startDate != "":
		return city + " (" + startDate + ")"
	}
	return city
}
