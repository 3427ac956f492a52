package handler

import (
	"log/slog"
	"net/http"

	"polaris/internal/domain"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/services"
	"polaris/internal/httputil"
)

// ConversationHandler handles conversation HTTP requests
type ConversationHandler struct {
	ledger         services.LedgerService
	projectService services.ProjectService
	logger         *slog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(
	ledger services.LedgerService,
	projectService services.ProjectService,
	logger *slog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		ledger:         ledger,
		projectService: projectService,
		logger:         logger,
	}
}

type createConversationRequest struct {
	Title string `json:"title"`
}

// CreateConversation creates a conversation in a project
// POST /api/projects/{id}/conversations
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !h.requireProject(w, r, projectID) {
		return
	}

	var req createConversationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversation, err := h.ledger.CreateConversation(r.Context(), projectID, req.Title)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, conversation)
}

// ListConversations lists a project's conversations, most recent first
// GET /api/projects/{id}/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !h.requireProject(w, r, projectID) {
		return
	}

	conversations, err := h.ledger.ListConversations(r.Context(), projectID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, conversations)
}

// ListMessages lists a conversation's messages in chronological order
// GET /api/conversations/{id}/messages
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversation := h.ownedConversation(w, r)
	if conversation == nil {
		return
	}

	messages, err := h.ledger.ListMessages(r.Context(), conversation.ID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, messages)
}

func (h *ConversationHandler) requireProject(w http.ResponseWriter, r *http.Request, projectID string) bool {
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

// ownedConversation loads the conversation from the path and checks that its
// project belongs to the caller.
func (h *ConversationHandler) ownedConversation(w http.ResponseWriter, r *http.Request) *chat.Conversation {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "conversation ID is required")
		return nil
	}

	conversation, err := h.ledger.GetConversation(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return nil
	}

	if _, err := h.projectService.GetProject(r.Context(), conversation.ProjectID, httputil.GetUserID(r)); err != nil {
		respondDomainError(w, h.logger, domain.ErrNotFound)
		return nil
	}

	return conversation
}
