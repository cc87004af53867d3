package trips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	contractx "viajero/agent/contract"
	"viajero/agent/geo"
	statex "viajero/agent/state"
)

const ledgerKey = "travel_log"

var ErrTripNotFound = errors.New("trip not found")

// Markers that turn a delete into "remove everything".
var deleteAllMarkers = map[string]struct{}{
	"": {}, "*": {}, "todo": {}, "todos": {}, "all": {},
}

// OpResult is the outcome of a ledger operation: a Spanish summary that is
// always safe to render, plus the updated trip when one was touched.
// Refusals (shorten past start, no matching trip) are OpResults, not errors;
// only storage faults surface as errors.
type OpResult struct {
	Summary string `json:"summary"`
	Trip    *Trip  `json:"updated_trip,omitempty"`
}

// Ledger is the per-user persistent trip store. All mutations are
// read-modify-write against the whole user record; serializing turns per
// user is the caller's job (one in-flight turn per user).
type Ledger struct {
	store    statex.Store
	resolver *geo.Resolver
	now      func() time.Time
}

func NewLedger(store statex.Store, resolver *geo.Resolver) *Ledger {
	return &Ledger{store: store, resolver: resolver, now: time.Now}
}

func (l *Ledger) load(ctx context.Context, userID string) (*TravelLog, error) {
	raw, err := l.store.Get(ctx, userID, ledgerKey)
	if err != nil {
		if errors.Is(err, statex.ErrKeyNotFound) {
			return &TravelLog{
				UserID:    userID,
				CreatedAt: l.now().UTC().Format(time.RFC3339),
				Trips:     []*Trip{},
			}, nil
		}
		return nil, fmt.Errorf("%w: load travel log: %v", contractx.ErrStoreUnreachable, err)
	}

	var tl TravelLog
	if err := json.Unmarshal(raw, &tl); err != nil {
		return nil, fmt.Errorf("corrupt travel log for %s: %w", userID, err)
	}
	if tl.Trips == nil {
		tl.Trips = []*Trip{}
	}
	return &tl, nil
}

func (l *Ledger) save(ctx context.Context, userID string, tl *TravelLog) error {
	payload, err := json.Marshal(tl)
	if err != nil {
		return fmt.Errorf("marshal travel log: %w", err)
	}
	if err := l.store.Put(ctx, userID, ledgerKey, payload); err != nil {
		return fmt.Errorf("%w: save travel log: %v", contractx.ErrStoreUnreachable, err)
	}
	return nil
}

func activeTrips(tl *TravelLog) []*Trip {
	return lo.Filter(tl.Trips, func(t *Trip, _ int) bool {
		return t.Status != StatusCancelled
	})
}

// CreateOrGetTrip returns the user's non-cancelled trip for the city,
// creating it when absent. Matching is by case-insensitive canonical city
// name; an existing trip only gets missing start/end/iata back-filled, never
// overwritten, which makes repeated planning calls idempotent.
func (l *Ledger) CreateOrGetTrip(ctx context.Context, userID, cityHint, startDate, endDate string) (*Trip, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := l.resolver.Resolve(cityHint)
	for _, t := range tl.Trips {
		if t.Status == StatusCancelled {
			continue
		}
		existing := l.resolver.Resolve(t.City)
		if !strings.EqualFold(existing.City, res.City) {
			continue
		}
		if startDate != "" && t.StartDate == "" {
			t.StartDate = startDate
		}
		if endDate != "" && t.EndDate == "" {
			t.EndDate = endDate
		}
		if res.IATA != "" && t.IATA == "" {
			t.IATA = res.IATA
		}
		if err := l.save(ctx, userID, tl); err != nil {
			return nil, err
		}
		return t, nil
	}

	idDate := startDate
	if idDate == "" {
		idDate = formatDate(l.now().UTC())
	}
	trip := &Trip{
		TripID:    tripID(idDate, res.City),
		CreatedAt: l.now().UTC().Format(time.RFC3339),
		Title:     autoTitle(res.City, startDate, endDate),
		City:      res.City,
		IATA:      res.IATA,
		Status:    StatusPlanned,
		Segments:  []Segment{},
		StartDate: startDate,
		EndDate:   firstNonEmpty(endDate, startDate),
	}
	tl.Trips = append(tl.Trips, trip)
	if err := l.save(ctx, userID, tl); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Str("trip_id", trip.TripID).Msg("viaje creado")
	return trip, nil
}

// AddSegment appends a provider fragment to a trip, dropping duplicates: a
// segment of the same type with the same single date, or the same
// checkin/checkout pair, is ignored. The trip's derived date range and title
// are recomputed after any append.
func (l *Ledger) AddSegment(ctx context.Context, userID, id string, seg Segment, agentName string) (*Trip, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	trip := findByID(tl, id)
	if trip == nil {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, id)
	}

	for _, existing := range trip.Segments {
		if existing.Type != seg.Type {
			continue
		}
		sameDate := seg.Date != "" && existing.Date == seg.Date
		sameStay := (seg.Checkin != "" || seg.Checkout != "") &&
			existing.Checkin == seg.Checkin && existing.Checkout == seg.Checkout
		if sameDate || sameStay {
			log.Debug().Str("trip_id", id).Str("type", seg.Type).Msg("segmento duplicado ignorado")
			return trip, nil
		}
	}

	trip.Segments = append(trip.Segments, seg)
	if agentName != "" {
		trip.AgentsCalled = append(trip.AgentsCalled, agentName)
	}
	if start, end := computeRange(trip.Segments); start != "" || end != "" {
		if start != "" {
			trip.StartDate = start
		}
		if end != "" {
			trip.EndDate = end
		}
	}
	trip.Title = autoTitle(trip.City, trip.StartDate, trip.EndDate)

	if err := l.save(ctx, userID, tl); err != nil {
		return nil, err
	}
	return trip, nil
}

func (l *Ledger) SetBudget(ctx context.Context, userID, id string, total float64) (*Trip, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	trip := findByID(tl, id)
	if trip == nil {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, id)
	}
	trip.Budget = &BudgetEntry{Total: total, UpdatedAt: l.now().UTC().Format(time.RFC3339)}
	if err := l.save(ctx, userID, tl); err != nil {
		return nil, err
	}
	return trip, nil
}

func (l *Ledger) SetDestinationInfo(ctx context.Context, userID, id, summary string, pois []contractx.POI, plan []contractx.DayPlan) (*Trip, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	trip := findByID(tl, id)
	if trip == nil {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, id)
	}
	trip.Destination = &DestinationInfo{
		Summary:   summary,
		POIs:      pois,
		Plan:      plan,
		UpdatedAt: l.now().UTC().Format(time.RFC3339),
	}
	if err := l.save(ctx, userID, tl); err != nil {
		return nil, err
	}
	log.Info().Str("trip_id", id).Int("pois", len(pois)).Msg("info de destino guardada")
	return trip, nil
}

// ListActive returns the user's non-cancelled trips.
func (l *Ledger) ListActive(ctx context.Context, userID string) ([]*Trip, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return activeTrips(tl), nil
}

// List renders the user's trips as a Spanish summary.
func (l *Ledger) List(ctx context.Context, userID string) (OpResult, error) {
	trips, err := l.ListActive(ctx, userID)
	if err != nil {
		return OpResult{}, err
	}
	if len(trips) == 0 {
		return OpResult{Summary: "No tienes viajes registrados todavía."}, nil
	}

	sorted := append([]*Trip(nil), trips...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate < sorted[j].StartDate
	})

	lines := []string{"Aquí tienes un resumen de tus viajes:"}
	for _, t := range sorted {
		city := firstNonEmpty(t.City, "¿Destino?")
		start := displayDate(t.StartDate)
		end := displayDate(firstNonEmpty(t.EndDate, t.StartDate))
		budget := ""
		if t.Budget != nil {
			budget = fmt.Sprintf(" con un presupuesto de ~%.0f€", t.Budget.Total)
		}
		lines = append(lines, fmt.Sprintf("- **%s**: del %s al %s%s.", city, start, end, budget))
	}
	return OpResult{Summary: strings.Join(lines, "\n")}, nil
}

// Shift translates both trip dates by the same delta, keeping the duration
// and therefore the end>=start invariant intact.
func (l *Ledger) Shift(ctx context.Context, userID, city string, days int) (OpResult, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return OpResult{}, err
	}
	trip := l.findTargetTrip(tl, city)
	if trip == nil {
		return OpResult{Summary: fmt.Sprintf("⚠️ No encontré un viaje a **%s**.", orEseDestino(city))}, nil
	}

	for _, field := range []*string{&trip.StartDate, &trip.EndDate} {
		if *field == "" {
			continue
		}
		if t, ok := parseDate(*field); ok {
			*field = formatDate(t.AddDate(0, 0, days))
		}
	}

	if err := l.save(ctx, userID, tl); err != nil {
		return OpResult{}, err
	}
	summary := fmt.Sprintf("✅ Fechas del viaje a **%s** desplazadas. Nuevas fechas: del %s al %s.",
		trip.City, displayDate(trip.StartDate), displayDate(trip.EndDate))
	return OpResult{Summary: summary, Trip: trip}, nil
}

// Extend moves the trip's end date later by days.
func (l *Ledger) Extend(ctx context.Context, userID, city string, days int) (OpResult, error) {
	return l.modifyStay(ctx, userID, city, abs(days))
}

// Shorten moves the trip's end date earlier by days, refusing any change
// that would push the end before the start.
func (l *Ledger) Shorten(ctx context.Context, userID, city string, days int) (OpResult, error) {
	return l.modifyStay(ctx, userID, city, -abs(days))
}

func (l *Ledger) modifyStay(ctx context.Context, userID, city string, daysChange int) (OpResult, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return OpResult{}, err
	}
	trip := l.findTargetTrip(tl, city)
	if trip == nil {
		return OpResult{Summary: fmt.Sprintf("⚠️ No encontré un viaje a **%s** para modificar.", orEseDestino(city))}, nil
	}

	start, okStart := parseDate(trip.StartDate)
	if !okStart {
		start = l.now()
	}
	end, okEnd := parseDate(firstNonEmpty(trip.EndDate, trip.StartDate))
	if !okEnd {
		end = start
	}
	newEnd := end.AddDate(0, 0, daysChange)
	if newEnd.Before(start) {
		return OpResult{Summary: fmt.Sprintf("⚠️ No se puede acortar el viaje a **%s** más allá de su fecha de inicio.", trip.City)}, nil
	}

	trip.EndDate = formatDate(newEnd)
	if err := l.save(ctx, userID, tl); err != nil {
		return OpResult{}, err
	}

	duration := int(newEnd.Sub(start).Hours() / 24)
	action := "extendido"
	if daysChange < 0 {
		action = "acortado"
	}
	summary := fmt.Sprintf("✅ Viaje a **%s** %s. Ahora dura **%d días**, del %s al %s.",
		trip.City, action, duration, displayDate(formatDate(start)), displayDate(trip.EndDate))
	return OpResult{Summary: summary, Trip: trip}, nil
}

// Delete removes trips for a city, or every trip when city is empty or one
// of the "all" markers. A confirmation summary is returned even when there
// was nothing to remove.
func (l *Ledger) Delete(ctx context.Context, userID, city string) (OpResult, error) {
	tl, err := l.load(ctx, userID)
	if err != nil {
		return OpResult{}, err
	}

	cityNorm := geo.Fold(city)
	if _, all := deleteAllMarkers[cityNorm]; all {
		if len(tl.Trips) == 0 {
			return OpResult{Summary: "No tienes viajes registrados."}, nil
		}
		tl.Trips = []*Trip{}
		if err := l.save(ctx, userID, tl); err != nil {
			return OpResult{}, err
		}
		return OpResult{Summary: "🧹 Todos tus viajes han sido eliminados."}, nil
	}

	remaining := lo.Filter(tl.Trips, func(t *Trip, _ int) bool {
		return !strings.Contains(geo.Fold(t.City), cityNorm)
	})
	if len(remaining) == len(tl.Trips) {
		return OpResult{Summary: fmt.Sprintf("⚠️ No encontré un viaje a **%s** para eliminar.", city)}, nil
	}

	tl.Trips = remaining
	if err := l.save(ctx, userID, tl); err != nil {
		return OpResult{}, err
	}
	return OpResult{Summary: fmt.Sprintf("🗑️ Viaje a **%s** eliminado correctamente.", city)}, nil
}

// findTargetTrip picks the trip a memory operation refers to: substring
// match on the folded city, or the single active trip when no city came.
func (l *Ledger) findTargetTrip(tl *TravelLog, city string) *Trip {
	trips := activeTrips(tl)
	if len(trips) == 0 {
		return nil
	}

	cityNorm := geo.Fold(city)
	if cityNorm == "" {
		if len(trips) == 1 {
			return trips[0]
		}
		return nil
	}
	for _, t := range trips {
		if strings.Contains(geo.Fold(t.City), cityNorm) {
			return t
		}
	}
	return nil
}

func findByID(tl *TravelLog, id string) *Trip {
	for _, t := range tl.Trips {
		if t.TripID == id {
			return t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orEseDestino(city string) string {
	if strings.TrimSpace(city) == "" {
		return "ese destino"
	}
	return city
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
