package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "viajero/agent/contract"
	dispatchx "viajero/agent/dispatch"
	tripsx "viajero/agent/trips"
)

const unknownIntentReply = "No he entendido bien tu petición. Puedo planificar viajes, buscar vuelos u hoteles, y darte información sobre destinos."

// Execute runs the turn's real work: search intents fan out over the
// dispatcher, memory intents hit the trip ledger, and anything else gets the
// capabilities reply. Ledger refusals come back as summaries, not errors;
// only storage faults abort the turn.
func Execute(ctx context.Context, in *GraphState, dispatcher *dispatchx.Dispatcher, ledger *tripsx.Ledger) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Done {
		return in, nil
	}

	intent := in.Cls.Intent
	switch {
	case intent.IsSearch():
		in.Merged, in.Agents = dispatcher.Dispatch(ctx, intent, in.Cls.Entities)

	case intent.IsMemory():
		op, err := runMemoryOp(ctx, in, ledger)
		if err != nil {
			return nil, err
		}
		in.Op = &op
		in.Agents = []string{strings.ToLower(string(intent))}

	default:
		in.Result = contractx.TurnResult{
			Intent:    intent,
			Entities:  in.Cls.Entities,
			ReplyText: unknownIntentReply,
		}
		in.Done = true
	}
	return in, nil
}

func runMemoryOp(ctx context.Context, in *GraphState, ledger *tripsx.Ledger) (tripsx.OpResult, error) {
	e := in.Cls.Entities
	switch in.Cls.Intent {
	case contractx.IntentListTrips:
		return ledger.List(ctx, in.UserID)
	case contractx.IntentShiftTrip:
		return ledger.Shift(ctx, in.UserID, e.City, e.DaysShift)
	case contractx.IntentExtendTrip:
		return ledger.Extend(ctx, in.UserID, e.City, e.DaysChange)
	case contractx.IntentShortenTrip:
		return ledger.Shorten(ctx, in.UserID, e.City, e.DaysChange)
	case contractx.IntentDeleteTrip:
		return ledger.Delete(ctx, in.UserID, e.City)
	}
	return tripsx.OpResult{}, fmt.Errorf("%w: unhandled memory intent %s", contractx.ErrValidation, in.Cls.Intent)
}
