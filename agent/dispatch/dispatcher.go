// Package dispatch fans one search intent out over the downstream agent
// ports, merges their typed results in a fixed order, and never fails the
// turn: a provider that errors or times out only degrades its own slot.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	geox "viajero/agent/geo"
)

const (
	defaultTripDays = 3
	defaultAdults   = 1
)

// Config tunes the fan-out.
type Config struct {
	DefaultOriginIATA string        `envconfig:"DEFAULT_ORIGIN_IATA" split_words:"true" default:"MAD"`
	TaskTimeout       time.Duration `envconfig:"TASK_TIMEOUT" split_words:"true" default:"25s"`
}

// Dispatcher owns the per-intent task plan. Budget runs sequentially after
// the fan-in because it consumes the flight and hotel output.
type Dispatcher struct {
	resolver *geox.Resolver
	geo      contractx.GeoGateway

	flight      contractx.FlightPort
	hotel       contractx.HotelPort
	destination contractx.DestinationPort
	budget      contractx.BudgetPort

	originIATA  string
	taskTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(cfg Config, resolver *geox.Resolver, geo contractx.GeoGateway,
	flight contractx.FlightPort, hotel contractx.HotelPort,
	destination contractx.DestinationPort, budget contractx.BudgetPort) *Dispatcher {
	origin := cfg.DefaultOriginIATA
	if origin == "" {
		origin = "MAD"
	}
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Dispatcher{
		resolver:    resolver,
		geo:         geo,
		flight:      flight,
		hotel:       hotel,
		destination: destination,
		budget:      budget,
		originIATA:  origin,
		taskTimeout: timeout,
		now:         time.Now,
	}
}

// Dispatch resolves the destination, runs the providers the intent needs in
// parallel, and returns the merged result plus the agents actually invoked.
// It never returns an error: every failure lands in the matching slot.
func (d *Dispatcher) Dispatch(ctx context.Context, intent contractx.Intent, entities contractx.EntitySet) (contractx.MergedResult, []string) {
	res := d.resolveDestination(ctx, entities.City)

	days := entities.Days
	if days <= 0 {
		days = defaultTripDays
	}
	adults := entities.Adults
	if adults <= 0 {
		adults = defaultAdults
	}
	checkin, checkout := TravelWindow(d.now(), days)

	merged := contractx.MergedResult{
		City:     res.City,
		IATA:     res.IATA,
		Checkin:  checkin,
		Checkout: checkout,
		Adults:   adults,
	}

	wantFlight := intent == contractx.IntentPlanTrip || intent == contractx.IntentSearchFlights
	wantHotel := intent == contractx.IntentPlanTrip || intent == contractx.IntentSearchHotels
	wantDestination := intent == contractx.IntentPlanTrip || intent == contractx.IntentGetDestinationInfo

	var agents []string
	var wg sync.WaitGroup

	if wantFlight {
		agents = append(agents, "flight")
		wg.Add(1)
		go func() {
			defer wg.Done()
			merged.Flight = d.runFlight(ctx, res, checkin, adults)
		}()
	}
	if wantHotel {
		agents = append(agents, "hotel")
		wg.Add(1)
		go func() {
			defer wg.Done()
			merged.Hotel = d.runHotel(ctx, res.City, checkin, checkout, adults)
		}()
	}
	if wantDestination {
		agents = append(agents, "destination")
		wg.Add(1)
		go func() {
			defer wg.Done()
			merged.Destination = d.runDestination(ctx, res.City, days)
		}()
	}
	wg.Wait()

	if d.shouldEstimateBudget(merged) {
		agents = append(agents, "calc")
		merged.Budget = d.runBudget(ctx, merged)
	}

	log.Info().
		Str("intent", string(intent)).
		Str("city", merged.City).
		Strs("agents", agents).
		Msg("despacho completado")
	return merged, agents
}

// resolveDestination runs the static resolver first and falls back to the
// dynamic gateway for the IATA code, teaching the resolver what it learns.
func (d *Dispatcher) resolveDestination(ctx context.Context, city string) geox.Resolution {
	res := d.resolver.Resolve(city)
	if res.City == "" || res.IATA != "" || d.geo == nil {
		return res
	}

	lookCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()
	iata, err := d.geo.LookupIATA(lookCtx, res.City)
	if err != nil {
		log.Warn().Err(err).Str("city", res.City).Msg("búsqueda IATA fallida")
		return res
	}
	if iata != "" {
		res.IATA = iata
		d.resolver.Learn(res.City, iata)
	}
	return res
}

func (d *Dispatcher) runFlight(ctx context.Context, res geox.Resolution, date string, adults int) *contractx.FlightResult {
	if d.flight == nil {
		return &contractx.FlightResult{Error: "agente de vuelos no disponible"}
	}
	// Without a code the provider gets the city name and matches what it can.
	destination := res.IATA
	if destination == "" {
		destination = res.City
	}
	if destination == "" {
		return &contractx.FlightResult{Error: "sin destino para buscar vuelos"}
	}
	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()
	out, err := d.flight.SearchFlights(callCtx, d.originIATA, destination, date, adults)
	if err != nil {
		log.Warn().Err(err).Str("destination", destination).Msg("agente de vuelos fallido")
		return &contractx.FlightResult{Error: err.Error()}
	}
	return &out
}

func (d *Dispatcher) runHotel(ctx context.Context, city, checkin, checkout string, adults int) *contractx.HotelResult {
	if d.hotel == nil {
		return &contractx.HotelResult{Error: "agente de hoteles no disponible"}
	}
	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()
	out, err := d.hotel.SearchHotels(callCtx, city, checkin, checkout, adults)
	if err != nil {
		log.Warn().Err(err).Str("city", city).Msg("agente de hoteles fallido")
		return &contractx.HotelResult{Error: err.Error()}
	}
	return &out
}

func (d *Dispatcher) runDestination(ctx context.Context, city string, days int) *contractx.DestinationResult {
	if d.destination == nil {
		return &contractx.DestinationResult{Error: "agente de destino no disponible"}
	}
	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()
	out, err := d.destination.Summarize(callCtx, city, days)
	if err != nil {
		log.Warn().Err(err).Str("city", city).Msg("agente de destino fallido")
		return &contractx.DestinationResult{Error: err.Error()}
	}
	return &out
}

// shouldEstimateBudget requires at least one priced offer; an all-failed
// fan-out has nothing worth totaling.
func (d *Dispatcher) shouldEstimateBudget(m contractx.MergedResult) bool {
	if d.budget == nil {
		return false
	}
	hasFlights := m.Flight != nil && len(m.Flight.Flights) > 0
	hasHotels := m.Hotel != nil && len(m.Hotel.Hotels) > 0
	return hasFlights || hasHotels
}

func (d *Dispatcher) runBudget(ctx context.Context, m contractx.MergedResult) *contractx.BudgetResult {
	var flights []contractx.FlightInfo
	var hotels []contractx.HotelInfo
	if m.Flight != nil {
		flights = m.Flight.Flights
	}
	if m.Hotel != nil {
		hotels = m.Hotel.Hotels
	}

	callCtx, cancel := context.WithTimeout(ctx, d.taskTimeout)
	defer cancel()
	out, err := d.budget.Estimate(callCtx, flights, hotels, m.Checkin, m.Checkout, m.Adults)
	if err != nil {
		log.Warn().Err(err).Msg("agente de presupuesto fallido")
		return &contractx.BudgetResult{Error: err.Error()}
	}
	return &out
}
