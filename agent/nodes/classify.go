package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	classifyx "viajero/agent/classify"
	contractx "viajero/agent/contract"
)

// ClassifyTurn resolves the turn's intent, then applies the clarification
// shield: when the previous turn left a pending intent, that intent wins over
// whatever the classifier said, and the fresh entities complete the pending
// ones. This keeps a short clarifying answer ("3 personas") from being
// re-classified into an unrelated intent.
func ClassifyTurn(ctx context.Context, in *GraphState, svc *classifyx.Service) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	cls := svc.Classify(ctx, in.UserID, in.Text, in.Context.ForClassifier())

	if in.Context.ClarificationNeeded && in.Context.Pending != nil {
		pending := in.Context.Pending
		cls = contractx.Classification{
			Intent:   pending.Intent,
			Entities: cls.Entities.MergeOnto(pending.Entities),
		}
		log.Info().
			Str("user_id", in.UserID).
			Str("intent", string(cls.Intent)).
			Msg("blindaje de clarificación aplicado")
	}

	// A search without a destination inherits the city the conversation was
	// already about.
	if cls.Entities.City == "" && !in.Context.ClarificationNeeded && in.Context.LastCity != "" {
		cls.Entities.City = in.Context.LastCity
	}

	in.Cls = cls
	return in, nil
}
