package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"chatloop/internal/datastream"
	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	llmSvc "chatloop/internal/domain/services/llm"
	"chatloop/internal/httputil"
)

// ChatHandler handles chat HTTP requests.
// Handlers only talk to services, never to repositories.
type ChatHandler struct {
	conversationService llmSvc.ConversationService
	orchestrator        llmSvc.StepOrchestrator
	turns               llmSvc.TurnBuilder
	logger              *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	conversationService llmSvc.ConversationService,
	orchestrator llmSvc.StepOrchestrator,
	turns llmSvc.TurnBuilder,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		conversationService: conversationService,
		orchestrator:        orchestrator,
		turns:               turns,
		logger:              logger,
	}
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	ID       string                    `json:"id"`
	Messages []llmSvc.IncomingMessage `json:"messages"`
}

// Validate checks the envelope; messages are validated during ingestion
func (r *ChatRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Messages, validation.Required),
	)
}

// Chat ingests the client's messages and streams the agent loop's turns
// POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	ctx := r.Context()
	exists, err := h.conversationService.Exists(ctx, req.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	if !exists {
		handleError(w, fmt.Errorf("conversation %s: %w", req.ID, domain.ErrNotFound))
		return
	}

	if _, err := h.conversationService.Ingest(ctx, req.ID, req.Messages); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("streaming chat",
		"conversation_id", req.ID,
		"user_id", httputil.GetUserID(r),
		"messages", len(req.Messages),
	)

	datastream.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	out := datastream.NewWriter(w)

	for turn := range h.orchestrator.Run(ctx, req.ID) {
		if err := h.writeTurn(out, turn, req.ID); err != nil {
			h.logger.Info("client disconnected, stopping stream",
				"conversation_id", req.ID,
				"turn_id", turn.ID,
				"error", err,
			)
			return
		}
		if ctx.Err() != nil {
			h.logger.Info("request context done, stopping stream",
				"conversation_id", req.ID,
				"error", ctx.Err(),
			)
			return
		}
	}
}

// writeTurn encodes and writes one turn. A turn that fails to encode is
// replaced by an error turn; only write failures are returned.
func (h *ChatHandler) writeTurn(out *datastream.Writer, turn *llmModels.Turn, conversationID string) error {
	lines, err := datastream.Encode(turn)
	if err != nil {
		h.logger.Error("failed to encode turn",
			"conversation_id", conversationID,
			"turn_id", turn.ID,
			"error", err,
		)
		errTurn := h.turns.NewErrorTurn(conversationID, fmt.Sprintf("failed to encode turn %s: %v", turn.ID, err))
		if lines, err = datastream.Encode(errTurn); err != nil {
			return err
		}
	}

	for _, line := range lines {
		if err := out.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// CreateChat creates an empty conversation
// POST /api/chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversationService.CreateConversation(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("conversation created", "conversation_id", conv.ID)
	httputil.RespondJSON(w, http.StatusCreated, conv)
}

// ListChats returns conversations newest first
// GET /api/chats?limit=N
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	convs, err := h.conversationService.ListConversations(r.Context(), limit)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, convs)
}

// GetChat returns one conversation
// GET /api/chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	conv, err := h.conversationService.GetConversation(r.Context(), conversationID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conv)
}

// GetTurns returns the stored history in client message shape
// GET /api/chats/{id}/turns
func (h *ChatHandler) GetTurns(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := PathParam(w, r, "id", "Chat ID")
	if !ok {
		return
	}

	messages, err := h.conversationService.Hydrate(r.Context(), conversationID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}
