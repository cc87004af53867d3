package nodes

import (
	"context"
	"fmt"

	contractx "viajero/agent/contract"
	statex "viajero/agent/state"
)

func LoadContext(ctx context.Context, in *GraphState, contexts *statex.ContextManager) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	uc, err := contexts.Load(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	in.Context = uc
	return in, nil
}
