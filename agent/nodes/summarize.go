package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	tripsx "viajero/agent/trips"
)

// Summarize turns the executed result into the user-facing reply. For a full
// plan it also writes the trip into the ledger: trip record, flight and hotel
// segments, budget and destination info. Ledger write failures degrade to a
// log line; the user still gets the gathered data.
func Summarize(ctx context.Context, in *GraphState, ledger *tripsx.Ledger) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Done {
		return in, nil
	}

	if in.Cls.Intent.IsMemory() {
		summary := "Operación completada."
		if in.Op != nil && in.Op.Summary != "" {
			summary = in.Op.Summary
		}
		in.Result = contractx.TurnResult{
			Intent:       in.Cls.Intent,
			Entities:     in.Cls.Entities,
			ReplyText:    summary,
			AgentsCalled: in.Agents,
		}
		return in, nil
	}

	m := in.Merged
	city := m.City
	if city == "" {
		city = "Destino"
	}

	var reply string
	switch in.Cls.Intent {
	case contractx.IntentSearchFlights:
		reply = fmt.Sprintf("Aquí tienes los vuelos que encontré para **%s**:", city)
	case contractx.IntentSearchHotels:
		reply = fmt.Sprintf("Estos son los hoteles disponibles en **%s**:", city)
	case contractx.IntentGetDestinationInfo:
		reply = fmt.Sprintf("Esto es lo que sé sobre **%s**:", city)
	default:
		reply = fmt.Sprintf("Aquí tienes tu plan para **%s**.", city)
	}

	if in.Cls.Intent == contractx.IntentPlanTrip {
		persistPlan(ctx, in, ledger, m)
	}

	structured := &contractx.StructuredReply{City: city}
	if m.Flight != nil {
		structured.Flights = m.Flight.Flights
	}
	if m.Hotel != nil {
		structured.Hotels = m.Hotel.Hotels
	}
	if m.Destination != nil {
		structured.POIs = m.Destination.POIs
		structured.Summary = m.Destination.Summary
		structured.Plan = m.Destination.Plan
	}
	if m.Budget != nil && m.Budget.Error == "" {
		structured.Budget = m.Budget
	}

	if errs := m.ProviderErrors(); len(errs) > 0 {
		note := "\n\n**Nota:** " + strings.Join(errs, " y ")
		reply += note
		structured.Error = note
	}

	in.Result = contractx.TurnResult{
		Intent:       in.Cls.Intent,
		Entities:     in.Cls.Entities,
		ReplyText:    reply,
		Structured:   structured,
		AgentsCalled: in.Agents,
	}
	return in, nil
}

func persistPlan(ctx context.Context, in *GraphState, ledger *tripsx.Ledger, m contractx.MergedResult) {
	trip, err := ledger.CreateOrGetTrip(ctx, in.UserID, m.City, m.Checkin, m.Checkout)
	if err != nil {
		log.Error().Err(err).Str("user_id", in.UserID).Msg("no se pudo guardar el viaje")
		return
	}

	if m.Flight != nil && len(m.Flight.Flights) > 0 {
		if payload, err := json.Marshal(m.Flight.Flights); err == nil {
			seg := tripsx.Segment{Type: tripsx.SegmentFlight, Date: m.Checkin, Payload: payload}
			if _, err := ledger.AddSegment(ctx, in.UserID, trip.TripID, seg, "flight"); err != nil {
				log.Warn().Err(err).Str("trip_id", trip.TripID).Msg("segmento de vuelo no guardado")
			}
		}
	}
	if m.Hotel != nil && len(m.Hotel.Hotels) > 0 {
		if payload, err := json.Marshal(m.Hotel.Hotels); err == nil {
			seg := tripsx.Segment{Type: tripsx.SegmentHotel, Checkin: m.Checkin, Checkout: m.Checkout, Payload: payload}
			if _, err := ledger.AddSegment(ctx, in.UserID, trip.TripID, seg, "hotel"); err != nil {
				log.Warn().Err(err).Str("trip_id", trip.TripID).Msg("segmento de hotel no guardado")
			}
		}
	}
	if d := m.Destination; d != nil && (d.Summary != "" || len(d.POIs) > 0 || len(d.Plan) > 0) {
		if _, err := ledger.SetDestinationInfo(ctx, in.UserID, trip.TripID, d.Summary, d.POIs, d.Plan); err != nil {
			log.Warn().Err(err).Str("trip_id", trip.TripID).Msg("info de destino no guardada")
		}
	}
	if m.Budget != nil && m.Budget.Error == "" {
		if _, err := ledger.SetBudget(ctx, in.UserID, trip.TripID, m.Budget.Total); err != nil {
			log.Warn().Err(err).Str("trip_id", trip.TripID).Msg("presupuesto no guardado")
		}
	}
}
