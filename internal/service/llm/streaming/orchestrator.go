package streaming

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatloop/internal/config"
	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
	llmSvc "chatloop/internal/domain/services/llm"
)

const tracerName = "chatloop/internal/service/llm/streaming"

var _ llmSvc.StepOrchestrator = (*Orchestrator)(nil)

// Orchestrator implements the StepOrchestrator interface.
// Each step reads the full history, runs one provider round, persists the
// resulting turns and yields them one by one. The loop continues only while
// the provider stops for tool calls and the step budget lasts.
type Orchestrator struct {
	turnStore llmRepo.TurnStore
	provider  llmSvc.ProviderClient
	tools     llmSvc.ToolSet
	builder   *Builder
	limits    llmSvc.StepLimitResolver
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewOrchestrator creates a new step orchestrator
func NewOrchestrator(
	turnStore llmRepo.TurnStore,
	provider llmSvc.ProviderClient,
	tools llmSvc.ToolSet,
	builder *Builder,
	limits llmSvc.StepLimitResolver,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		turnStore: turnStore,
		provider:  provider,
		tools:     tools,
		builder:   builder,
		limits:    limits,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
	}
}

// Run implements llmSvc.StepOrchestrator
func (o *Orchestrator) Run(ctx context.Context, conversationID string) iter.Seq[*llmModels.Turn] {
	return func(yield func(*llmModels.Turn) bool) {
		maxSteps := o.stepLimit(ctx, conversationID)

		for step := 1; step <= maxSteps; step++ {
			if err := ctx.Err(); err != nil {
				o.logger.Info("stopping step loop, request context done",
					"conversation_id", conversationID,
					"step", step,
					"error", err,
				)
				return
			}

			result, err := o.runProvider(ctx, conversationID, step)
			if err != nil {
				o.logger.Error("step failed",
					"conversation_id", conversationID,
					"step", step,
					"error", err,
				)
				yield(o.builder.NewErrorTurn(conversationID, err.Error()))
				return
			}

			for _, turn := range o.builder.Build(result, conversationID) {
				saved, err := o.turnStore.Append(ctx, turn)
				if err != nil {
					o.logger.Error("failed to persist turn",
						"conversation_id", conversationID,
						"turn_id", turn.ID,
						"step", step,
						"error", err,
					)
					yield(o.builder.NewErrorTurn(conversationID, fmt.Sprintf("failed to persist turn: %v", err)))
					return
				}
				if !yield(saved) {
					return
				}
			}

			if !result.FinishReason.WantsToolContinuation() {
				return
			}
		}

		// Budget exhausted while the model still wants tools: the request ends
		// without an error turn.
		o.logger.Warn("step budget exhausted with tool calls pending",
			"conversation_id", conversationID,
			"max_steps", maxSteps,
		)
	}
}

// runProvider performs one step: a fresh history read and one provider round
func (o *Orchestrator) runProvider(ctx context.Context, conversationID string, step int) (*llmSvc.ProviderResult, error) {
	ctx, span := o.tracer.Start(ctx, "chatloop.step", trace.WithAttributes(
		attribute.String("conversation.id", conversationID),
		attribute.Int("step", step),
	))
	defer span.End()

	history, err := o.turnStore.ListByConversation(ctx, conversationID)
	if err != nil {
		err = fmt.Errorf("failed to load history: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := o.provider.Run(ctx, history, o.tools)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if result == nil {
		result = &llmSvc.ProviderResult{FinishReason: llmModels.FinishReasonStop}
	}

	span.SetAttributes(attribute.String("finish_reason", string(result.FinishReason)))

	o.logger.Debug("step completed",
		"conversation_id", conversationID,
		"step", step,
		"history_len", len(history),
		"finish_reason", result.FinishReason,
		"tool_results", len(result.ToolResults),
	)

	return result, nil
}

func (o *Orchestrator) stepLimit(ctx context.Context, conversationID string) int {
	if o.limits == nil {
		return config.DefaultMaxSteps
	}
	limit, err := o.limits.GetStepLimit(ctx, conversationID)
	if err != nil || limit < 1 {
		o.logger.Warn("falling back to default step limit",
			"conversation_id", conversationID,
			"limit", limit,
			"error", err,
		)
		return config.DefaultMaxSteps
	}
	return limit
}
