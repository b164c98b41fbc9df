package llm

import (
	"context"
	"iter"

	"chatloop/internal/domain/models/llm"
)

// StepOrchestrator drives the multi-step agent loop for one request.
type StepOrchestrator interface {
	// Run lazily produces the turns of one request, each as soon as it is
	// persisted. The sequence ends normally, or with a single error turn when a
	// provider round fails. Stopping iteration early stops the loop before the
	// next provider round.
	Run(ctx context.Context, conversationID string) iter.Seq[*llm.Turn]
}

// TurnBuilder converts a provider result into the turns to persist, in order.
type TurnBuilder interface {
	Build(result *ProviderResult, conversationID string) []*llm.Turn

	// NewErrorTurn returns an assistant turn carrying a single error part
	NewErrorTurn(conversationID, message string) *llm.Turn
}
