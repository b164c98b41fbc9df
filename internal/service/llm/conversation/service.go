package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"chatloop/internal/config"
	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
	llmSvc "chatloop/internal/domain/services/llm"
)

// Service implements the ConversationService interface.
// Handles conversation creation, ingestion of client messages and hydration
// of stored history.
type Service struct {
	conversationRepo llmRepo.ConversationRepository
	turnStore        llmRepo.TurnStore
	logger           *slog.Logger
}

// NewService creates a new conversation service
func NewService(
	conversationRepo llmRepo.ConversationRepository,
	turnStore llmRepo.TurnStore,
	logger *slog.Logger,
) *Service {
	return &Service{
		conversationRepo: conversationRepo,
		turnStore:        turnStore,
		logger:           logger,
	}
}

var _ llmSvc.ConversationService = (*Service)(nil)

// CreateConversation creates an empty conversation
func (s *Service) CreateConversation(ctx context.Context) (*llmModels.Conversation, error) {
	conv := &llmModels.Conversation{}
	if err := s.conversationRepo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Info("conversation created", "conversation_id", conv.ID)
	return conv, nil
}

// GetConversation returns one conversation
func (s *Service) GetConversation(ctx context.Context, conversationID string) (*llmModels.Conversation, error) {
	conv, err := s.conversationRepo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns conversations newest first
func (s *Service) ListConversations(ctx context.Context, limit int) ([]llmModels.Conversation, error) {
	switch {
	case limit <= 0:
		limit = config.DefaultConversationListLimit
	case limit > config.MaxConversationListLimit:
		limit = config.MaxConversationListLimit
	}

	convs, err := s.conversationRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if convs == nil {
		convs = []llmModels.Conversation{}
	}
	return convs, nil
}

// Exists reports whether the conversation exists
func (s *Service) Exists(ctx context.Context, conversationID string) (bool, error) {
	return s.conversationRepo.Exists(ctx, conversationID)
}

// Ingest appends every incoming message whose id is not stored yet.
// Clients resend the whole transcript on each request, so most messages are
// already present and are skipped.
func (s *Service) Ingest(ctx context.Context, conversationID string, messages []llmSvc.IncomingMessage) ([]llmModels.Turn, error) {
	if err := validateMessages(messages); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existing, err := s.turnStore.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(messages))
	for _, t := range existing {
		seen[t.ID] = struct{}{}
	}

	var added []llmModels.Turn
	for _, msg := range messages {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}

		saved, err := s.turnStore.Append(ctx, &llmModels.Turn{
			ID:             msg.ID,
			ConversationID: conversationID,
			Role:           llmModels.Role(msg.Role),
			Text:           msg.Content,
			Parts:          llmModels.Parts{llmModels.TextPart{Text: msg.Content}},
			CreatedAt:      msg.CreatedAt,
		})
		if errors.Is(err, domain.ErrConflict) {
			// Stored by a concurrent request since we listed
			s.logger.Debug("skipping duplicate message", "conversation_id", conversationID, "turn_id", msg.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("append message %s: %w", msg.ID, err)
		}
		added = append(added, *saved)
	}

	if len(added) > 0 {
		s.logger.Debug("ingested messages",
			"conversation_id", conversationID,
			"received", len(messages),
			"added", len(added),
		)
	}
	return added, nil
}

// Hydrate returns the stored conversation in the client SDK's message shape
func (s *Service) Hydrate(ctx context.Context, conversationID string) ([]llmSvc.HydratedMessage, error) {
	exists, err := s.conversationRepo.Exists(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("conversation %s not found", conversationID)}
	}

	turns, err := s.turnStore.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	out := make([]llmSvc.HydratedMessage, 0, len(turns))
	for _, t := range turns {
		parts := t.Parts
		if parts == nil {
			parts = llmModels.Parts{}
		}
		out = append(out, llmSvc.HydratedMessage{
			ID:        t.ID,
			Role:      t.Role,
			Content:   t.Text,
			CreatedAt: t.CreatedAt,
			Parts:     parts,
		})
	}
	return out, nil
}

// Validation methods

func validateMessages(messages []llmSvc.IncomingMessage) error {
	if err := validation.Validate(messages,
		validation.Required,
		validation.Length(1, config.MaxMessagesPerRequest),
	); err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	for i := range messages {
		if err := validateMessage(&messages[i]); err != nil {
			return fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return nil
}

func validateMessage(msg *llmSvc.IncomingMessage) error {
	return validation.ValidateStruct(msg,
		validation.Field(&msg.ID, validation.Required, is.UUID),
		validation.Field(&msg.Role,
			validation.Required,
			validation.In(string(llmModels.RoleUser), string(llmModels.RoleAssistant)),
		),
		validation.Field(&msg.Content, validation.Length(0, config.MaxMessageContentLength)),
		validation.Field(&msg.CreatedAt, validation.Required),
	)
}
