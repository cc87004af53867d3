// Package nodes holds the per-step functions of the turn graph. Each node
// takes the shared GraphState, does one thing, and hands the state to the
// next node; a node that ends the turn early sets Done and fills Result.
package nodes

import (
	"errors"
	"strings"
	"time"

	contractx "viajero/agent/contract"
	statex "viajero/agent/state"
	tripsx "viajero/agent/trips"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidUser    = errors.New("user id is empty")
)

type GraphInput struct {
	UserID         string
	ConversationID string
	Text           string
}

type GraphOutput = contractx.TurnResult

// GraphState is the working record of one turn as it moves through the graph.
type GraphState struct {
	UserID         string
	ConversationID string
	Text           string
	Now            time.Time

	Context statex.UserContext
	Cls     contractx.Classification

	Merged contractx.MergedResult
	Agents []string
	Op     *tripsx.OpResult

	Next   statex.UserContext
	Result contractx.TurnResult
	Done   bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GraphState{
		UserID:         userID,
		ConversationID: strings.TrimSpace(in.ConversationID),
		Text:           text,
		Now:            nowFn(),
	}, nil
}
