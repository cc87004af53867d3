package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	contractx "viajero/agent/contract"
)

const contextKey = "last_context"

// PendingIntent snapshots an interrupted turn: the intent that could not run
// and whatever entities were already filled. It is resumed by the
// clarification shield once the missing slot arrives.
type PendingIntent struct {
	Intent   contractx.Intent    `json:"intent"`
	Entities contractx.EntitySet `json:"entities"`
}

// UserContext is the small carry-over record between turns. It is rewritten
// after every turn; there is no other deletion path.
type UserContext struct {
	LastIntent          contractx.Intent `json:"last_intent,omitempty"`
	LastCity            string           `json:"last_city,omitempty"`
	ClarificationNeeded bool             `json:"clarification_needed,omitempty"`
	Pending             *PendingIntent   `json:"pending_intent,omitempty"`
}

// ForClassifier builds the context object handed to the NLU call: when a
// clarification is pending, the pending snapshot dominates; otherwise only
// the last city is carried.
func (c UserContext) ForClassifier() map[string]any {
	out := map[string]any{}
	if c.ClarificationNeeded && c.Pending != nil {
		out["clarification_needed"] = true
		out["pending_intent"] = *c.Pending
		return out
	}
	if c.LastCity != "" {
		out["last_city"] = c.LastCity
	}
	return out
}

// ContextManager loads and stores per-user UserContext records.
type ContextManager struct {
	store Store
}

func NewContextManager(store Store) *ContextManager {
	return &ContextManager{store: store}
}

// Load returns the user's carried context, or an empty one when none exists
// or the stored payload no longer decodes.
func (m *ContextManager) Load(ctx context.Context, userID string) (UserContext, error) {
	raw, err := m.store.Get(ctx, userID, contextKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return UserContext{}, nil
		}
		return UserContext{}, fmt.Errorf("%w: load context: %v", contractx.ErrStoreUnreachable, err)
	}

	var uc UserContext
	if err := json.Unmarshal(raw, &uc); err != nil {
		return UserContext{}, nil
	}
	return uc, nil
}

// Save rewrites the user's context. This is a synchronous step at the end of
// every turn: the write must happen-before the turn's reply is returned.
func (m *ContextManager) Save(ctx context.Context, userID string, uc UserContext) error {
	payload, err := json.Marshal(uc)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	if err := m.store.Put(ctx, userID, contextKey, payload); err != nil {
		return fmt.Errorf("%w: save context: %v", contractx.ErrStoreUnreachable, err)
	}
	return nil
}
