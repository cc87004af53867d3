package contract

// Intent is the classified purpose of one user turn. It is immutable once
// classified; only the clarification shield may replace it with the pending
// intent from the previous turn.
type Intent string

const (
	IntentPlanTrip           Intent = "PLAN_TRIP"
	IntentSearchFlights      Intent = "SEARCH_FLIGHTS"
	IntentSearchHotels       Intent = "SEARCH_HOTELS"
	IntentGetDestinationInfo Intent = "GET_DESTINATION_INFO"
	IntentListTrips          Intent = "LIST_TRIPS"
	IntentShiftTrip          Intent = "SHIFT_TRIP"
	IntentExtendTrip         Intent = "EXTEND_TRIP"
	IntentShortenTrip        Intent = "SHORTEN_TRIP"
	IntentDeleteTrip         Intent = "DELETE_TRIP"
	IntentUnknown            Intent = "UNKNOWN"
)

// IsSearch reports whether the intent fans out to downstream data providers.
func (i Intent) IsSearch() bool {
	switch i {
	case IntentPlanTrip, IntentSearchFlights, IntentSearchHotels, IntentGetDestinationInfo:
		return true
	}
	return false
}

// IsMemory reports whether the intent reads or mutates the trip ledger.
func (i Intent) IsMemory() bool {
	switch i {
	case IntentListTrips, IntentShiftTrip, IntentExtendTrip, IntentShortenTrip, IntentDeleteTrip:
		return true
	}
	return false
}

// RequiresCity reports whether the intent cannot run without a destination.
// Ledger operations resolve their target trip themselves, so only search
// intents hard-require a city before dispatch.
func (i Intent) RequiresCity() bool {
	return i.IsSearch()
}

// ParseIntent maps a raw classifier tag onto a known intent, degrading to
// UNKNOWN for anything unrecognized.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentPlanTrip, IntentSearchFlights, IntentSearchHotels, IntentGetDestinationInfo,
		IntentListTrips, IntentShiftTrip, IntentExtendTrip, IntentShortenTrip, IntentDeleteTrip:
		return Intent(raw)
	}
	return IntentUnknown
}

// EntitySet carries the typed slots extracted from a user turn. Zero values
// mean "not provided"; slot names the classifier invents are dropped at
// decode time rather than stored.
type EntitySet struct {
	City       string `json:"city,omitempty"`
	Days       int    `json:"days,omitempty"`
	Adults     int    `json:"adults,omitempty"`
	DaysShift  int    `json:"days_shift,omitempty"`
	DaysChange int    `json:"days_change,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MergeOnto overlays e on top of base, newer non-empty values winning. The
// clarification shield uses it to complete a pending entity set with the
// slots extracted from the clarifying answer.
func (e EntitySet) MergeOnto(base EntitySet) EntitySet {
	out := base
	if e.City != "" {
		out.City = e.City
	}
	if e.Days != 0 {
		out.Days = e.Days
	}
	if e.Adults != 0 {
		out.Adults = e.Adults
	}
	if e.DaysShift != 0 {
		out.DaysShift = e.DaysShift
	}
	if e.DaysChange != 0 {
		out.DaysChange = e.DaysChange
	}
	return out
}

// Classification is the final outcome of one classifier-cache lookup.
type Classification struct {
	Intent   Intent    `json:"intent"`
	Entities EntitySet `json:"entities"`
}

// FlightInfo is one flight offer as returned by the flight provider.
type FlightInfo struct {
	Airline       string  `json:"airline,omitempty"`
	FlightNumber  string  `json:"flight_number,omitempty"`
	Origin        string  `json:"origin,omitempty"`
	Destination   string  `json:"destination,omitempty"`
	DepartureTime string  `json:"departure_time,omitempty"`
	ArrivalTime   string  `json:"arrival_time,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	Stops         int     `json:"stops"`
	Price         float64 `json:"price,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// HotelInfo is one hotel offer as returned by the hotel provider.
type HotelInfo struct {
	Name          string  `json:"name,omitempty"`
	HotelID       string  `json:"hotelId,omitempty"`
	Rating        int     `json:"rating,omitempty"`
	Address       string  `json:"address,omitempty"`
	PricePerNight float64 `json:"price_per_night,omitempty"`
	Currency      string  `json:"currency,omitempty"`
}

// POI is a point of interest from the destination provider.
type POI struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// DayPlan is one day of the suggested itinerary.
type DayPlan struct {
	Day        int      `json:"day"`
	Activities []string `json:"activities,omitempty"`
}

// FlightResult is the flight provider's slice of a merged dispatch. Error is
// set instead of Flights when the call failed or timed out.
type FlightResult struct {
	Flights []FlightInfo `json:"flights,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type HotelResult struct {
	Hotels []HotelInfo `json:"hotels,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type DestinationResult struct {
	Summary string    `json:"summary,omitempty"`
	POIs    []POI     `json:"pois,omitempty"`
	Plan    []DayPlan `json:"plan_sugerido,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type BudgetResult struct {
	Total    float64 `json:"total"`
	Currency string  `json:"currency,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// MergedResult is the typed union of everything one dispatch gathered. Each
// provider owns its own slot, so concurrent completion order can never
// produce a key collision; merge order stays fixed (flight, hotel,
// destination, budget) for reproducibility.
type MergedResult struct {
	City     string `json:"city"`
	IATA     string `json:"iata,omitempty"`
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Adults   int    `json:"adults"`

	Flight      *FlightResult      `json:"flight,omitempty"`
	Hotel       *HotelResult       `json:"hotel,omitempty"`
	Destination *DestinationResult `json:"destination,omitempty"`
	Budget      *BudgetResult      `json:"budget,omitempty"`
}

// ProviderErrors collects the error notes of every failed provider, in merge
// order, for the user-facing footer.
func (m MergedResult) ProviderErrors() []string {
	var errs []string
	if m.Flight != nil && m.Flight.Error != "" {
		errs = append(errs, m.Flight.Error)
	}
	if m.Hotel != nil && m.Hotel.Error != "" {
		errs = append(errs, m.Hotel.Error)
	}
	if m.Destination != nil && m.Destination.Error != "" {
		errs = append(errs, m.Destination.Error)
	}
	if m.Budget != nil && m.Budget.Error != "" {
		errs = append(errs, m.Budget.Error)
	}
	return errs
}

// StructuredReply is the machine-readable half of a turn's answer.
type StructuredReply struct {
	City    string        `json:"city,omitempty"`
	Flights []FlightInfo  `json:"flights,omitempty"`
	Hotels  []HotelInfo   `json:"hotels,omitempty"`
	POIs    []POI         `json:"pois,omitempty"`
	Summary string        `json:"summary,omitempty"`
	Plan    []DayPlan     `json:"plan_sugerido,omitempty"`
	Budget  *BudgetResult `json:"budget,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// TurnResult is everything the front door needs to answer one user turn.
type TurnResult struct {
	Intent       Intent           `json:"intent"`
	Entities     EntitySet        `json:"entities"`
	ReplyText    string           `json:"reply_text"`
	Structured   *StructuredReply `json:"structured_data,omitempty"`
	AgentsCalled []string         `json:"agents_called,omitempty"`
}
