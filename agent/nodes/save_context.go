package nodes

import (
	"context"
	"fmt"

	contractx "viajero/agent/contract"
	statex "viajero/agent/state"
)

// SaveContext writes the next-turn carry-over before the reply leaves the
// graph. A clarification turn already prepared its context in ResolveCity;
// any other turn records the intent and the city the conversation settled on.
// The "*" marker (delete everything) is never remembered as a city.
func SaveContext(ctx context.Context, in *GraphState, contexts *statex.ContextManager) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if !in.Done {
		next := statex.UserContext{LastIntent: in.Cls.Intent}
		city := in.Cls.Entities.City
		if city == "" {
			city = in.Merged.City
		}
		if city != "" && city != "*" {
			next.LastCity = city
		}
		in.Next = next
	}

	if err := contexts.Save(ctx, in.UserID, in.Next); err != nil {
		return nil, err
	}
	return in, nil
}
