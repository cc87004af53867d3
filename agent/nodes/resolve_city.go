package nodes

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	geox "viajero/agent/geo"
	statex "viajero/agent/state"
)

const clarifyCityReply = "No he entendido a qué destino te refieres. ¿Podrías indicármelo?"

var iataShape = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ResolveCity normalizes a fuzzy destination ("sur de Italia") onto a
// practical airport city through the geo gateway. Cities the static resolver
// already maps to an airport skip the gateway round-trip. When a search
// intent still has no city afterwards, it ends the turn with a clarifying
// question and parks the intent as pending so the next answer resumes it.
func ResolveCity(ctx context.Context, in *GraphState, resolver *geox.Resolver, geo contractx.GeoGateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	city := strings.TrimSpace(in.Cls.Entities.City)
	if city != "" && city != "*" && !iataShape.MatchString(city) && geo != nil && !knownDestination(resolver, city) {
		normalized, err := geo.NormalizeLocation(ctx, city)
		if err != nil {
			log.Warn().Err(err).Str("city", city).Msg("normalización geográfica fallida")
		} else if normalized != "" {
			in.Cls.Entities.City = normalized
		}
	}

	if in.Cls.Intent.RequiresCity() && strings.TrimSpace(in.Cls.Entities.City) == "" {
		in.Next = statex.UserContext{
			LastIntent:          in.Cls.Intent,
			LastCity:            in.Context.LastCity,
			ClarificationNeeded: true,
			Pending: &statex.PendingIntent{
				Intent:   in.Cls.Intent,
				Entities: in.Cls.Entities,
			},
		}
		in.Result = contractx.TurnResult{
			Intent:    in.Cls.Intent,
			Entities:  in.Cls.Entities,
			ReplyText: clarifyCityReply,
		}
		in.Done = true
	}
	return in, nil
}

func knownDestination(resolver *geox.Resolver, city string) bool {
	return resolver != nil && resolver.Resolve(city).IATA != ""
}
