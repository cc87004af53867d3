// Package orchestrator wires the turn graph: validate, load context,
// classify, resolve the destination, execute, summarize, save context,
// reply. One Orchestrator instance serves every user; per-user turns must be
// serialized by the caller, since context and ledger writes are
// read-modify-write.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	classifyx "viajero/agent/classify"
	contractx "viajero/agent/contract"
	dispatchx "viajero/agent/dispatch"
	geox "viajero/agent/geo"
	nodex "viajero/agent/nodes"
	statex "viajero/agent/state"
	tripsx "viajero/agent/trips"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidUser    = nodex.ErrInvalidUser
)

type Orchestrator struct {
	classifier *classifyx.Service
	contexts   *statex.ContextManager
	dispatcher *dispatchx.Dispatcher
	ledger     *tripsx.Ledger
	resolver   *geox.Resolver
	geo        contractx.GeoGateway

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	classifier *classifyx.Service,
	contexts *statex.ContextManager,
	dispatcher *dispatchx.Dispatcher,
	ledger *tripsx.Ledger,
	resolver *geox.Resolver,
	geo contractx.GeoGateway,
) (*Orchestrator, error) {
	if classifier == nil {
		return nil, errors.New("classifier service is required")
	}
	if contexts == nil {
		return nil, errors.New("context manager is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if ledger == nil {
		return nil, errors.New("trip ledger is required")
	}
	if resolver == nil {
		return nil, errors.New("city resolver is required")
	}

	o := &Orchestrator{
		classifier: classifier,
		contexts:   contexts,
		dispatcher: dispatcher,
		ledger:     ledger,
		resolver:   resolver,
		geo:        geo,
		now:        time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one user message through the graph and returns the reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, conversationID, text string) (contractx.TurnResult, error) {
	return o.graphRunner.Invoke(ctx, nodex.GraphInput{
		UserID:         userID,
		ConversationID: conversationID,
		Text:           text,
	})
}
