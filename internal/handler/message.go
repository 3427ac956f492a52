package handler

import (
	"log/slog"
	"net/http"

	"polaris/internal/domain"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/services"
	"polaris/internal/httputil"
	"polaris/internal/service/agent"
)

// MessageHandler handles the cancel-then-append message flow. Sending a
// message cancels every processing run in the project before the new run
// starts, so the project never has two live agents.
type MessageHandler struct {
	ledger         services.LedgerService
	projectService services.ProjectService
	coordinator    *agent.Coordinator
	runner         *agent.Runner
	logger         *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	ledger services.LedgerService,
	projectService services.ProjectService,
	coordinator *agent.Coordinator,
	runner *agent.Runner,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		ledger:         ledger,
		projectService: projectService,
		coordinator:    coordinator,
		runner:         runner,
		logger:         logger,
	}
}

type sendMessageRequest struct {
	ProjectID      string `json:"project_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      *chat.Message `json:"user_message"`
	AssistantMessage *chat.Message `json:"assistant_message"`
	CancelledIDs     []string      `json:"cancelled_ids"`
}

type cancelRequest struct {
	ProjectID string `json:"project_id"`
}

// SendMessage appends a user message and starts an agent run for it
// POST /api/messages
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.requireProject(w, r, req.ProjectID) {
		return
	}

	conversation, err := h.ledger.GetConversation(r.Context(), req.ConversationID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if conversation.ProjectID != req.ProjectID {
		respondDomainError(w, h.logger, domain.ErrNotFound)
		return
	}

	// Cancel everything in flight before the new message lands.
	cancelled, err := h.coordinator.CancelAllProcessing(r.Context(), req.ProjectID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	userMessage, err := h.ledger.AppendMessage(r.Context(), &services.AppendMessageRequest{
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		Role:           chat.RoleUser,
		Content:        req.Content,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	processing := chat.StatusProcessing
	placeholder, err := h.ledger.AppendMessage(r.Context(), &services.AppendMessageRequest{
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		Role:           chat.RoleAssistant,
		Status:         &processing,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	h.runner.Start(&agent.Run{
		ProjectID:      req.ProjectID,
		ConversationID: req.ConversationID,
		MessageID:      placeholder.ID,
		UserText:       userMessage.Content,
	})

	httputil.RespondJSON(w, http.StatusAccepted, sendMessageResponse{
		UserMessage:      userMessage,
		AssistantMessage: placeholder,
		CancelledIDs:     cancelled,
	})
}

// CancelMessages cancels all processing messages in a project
// POST /api/messages/cancel
func (h *MessageHandler) CancelMessages(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.requireProject(w, r, req.ProjectID) {
		return
	}

	cancelled, err := h.coordinator.CancelAllProcessing(r.Context(), req.ProjectID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"cancelled_ids": cancelled,
	})
}

func (h *MessageHandler) requireProject(w http.ResponseWriter, r *http.Request, projectID string) bool {
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID is required")
		return false
	}

	if _, err := h.projectService.GetProject(r.Context(), projectID, httputil.GetUserID(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return false
	}
	return true
}
