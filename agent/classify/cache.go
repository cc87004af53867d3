package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	contractx "viajero/agent/contract"
	statex "viajero/agent/state"
)

const cacheKey = "intent_cache"

// Service wraps the untrusted classifier port with a content-addressed,
// per-user cache. Classify always succeeds: any failure of the underlying
// call degrades to UNKNOWN with an error entity, never an error return.
type Service struct {
	classifier contractx.Classifier
	store      statex.Store
}

func NewService(classifier contractx.Classifier, store statex.Store) *Service {
	return &Service{classifier: classifier, store: store}
}

// Classify resolves (intent, entities) for one user turn. Cached entries are
// keyed by message + canonicalized context + prompt version; an entry whose
// intent is UNKNOWN is never treated as a hit, since it marks classifier
// uncertainty rather than a stable answer.
func (s *Service) Classify(ctx context.Context, userID, message string, turnContext map[string]any) contractx.Classification {
	key := s.cacheDigest(message, turnContext)
	cache := s.loadCache(ctx, userID)

	if cached, ok := cache[key]; ok {
		if cached.Intent != contractx.IntentUnknown {
			log.Debug().Str("user_id", userID).Msg("nlu cache hit")
			return cached
		}
		log.Debug().Str("user_id", userID).Msg("nlu cache hit (UNKNOWN), recomputing")
	}

	cls, err := s.classifier.Classify(ctx, message, turnContext)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("classifier failed")
		return contractx.Classification{
			Intent:   contractx.IntentUnknown,
			Entities: contractx.EntitySet{Error: err.Error()},
		}
	}

	if cls.Intent == contractx.IntentUnknown {
		cls = ApplyFallback(message, cls)
	}
	cls.Entities = defaultAdults(cls.Intent, cls.Entities)

	cache[key] = cls
	s.saveCache(ctx, userID, cache)
	return cls
}

// defaultAdults fills in a lone traveler for booking-style intents when the
// classifier left the slot empty.
func defaultAdults(intent contractx.Intent, e contractx.EntitySet) contractx.EntitySet {
	switch intent {
	case contractx.IntentPlanTrip, contractx.IntentSearchFlights, contractx.IntentSearchHotels:
		if e.Adults == 0 {
			e.Adults = 1
		}
	}
	return e
}

func (s *Service) cacheDigest(message string, turnContext map[string]any) string {
	// json.Marshal sorts map keys, which canonicalizes the context.
	contextJSON, err := json.Marshal(turnContext)
	if err != nil {
		contextJSON = []byte("{}")
	}
	sum := sha256.Sum256([]byte(message + "||" + string(contextJSON) + "||" + s.classifier.PromptDigest()))
	return hex.EncodeToString(sum[:])
}

func (s *Service) loadCache(ctx context.Context, userID string) map[string]contractx.Classification {
	cache := map[string]contractx.Classification{}
	raw, err := s.store.Get(ctx, userID, cacheKey)
	if err != nil {
		if !errors.Is(err, statex.ErrKeyNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("nlu cache unreadable")
		}
		return cache
	}
	if err := json.Unmarshal(raw, &cache); err != nil {
		return map[string]contractx.Classification{}
	}
	return cache
}

func (s *Service) saveCache(ctx context.Context, userID string, cache map[string]contractx.Classification) {
	payload, err := json.Marshal(cache)
	if err != nil {
		return
	}
	if err := s.store.Put(ctx, userID, cacheKey, payload); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("nlu cache write failed")
	}
}
