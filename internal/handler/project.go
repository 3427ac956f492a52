package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/services"
	"polaris/internal/httputil"
	"polaris/internal/service/agent"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	projectService services.ProjectService
	ledger         services.LedgerService
	runner         *agent.Runner
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(
	projectService services.ProjectService,
	ledger services.LedgerService,
	runner *agent.Runner,
	logger *slog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		ledger:         ledger,
		runner:         runner,
		logger:         logger,
	}
}

type createProjectRequest struct {
	Name          string `json:"name"`
	InitialPrompt string `json:"initial_prompt,omitempty"`
}

type createProjectResponse struct {
	Project        *filestore.Project `json:"project"`
	ConversationID string             `json:"conversation_id,omitempty"`
	MessageID      string             `json:"message_id,omitempty"`
}

// ListProjects retrieves all projects for the user
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	projects, err := h.projectService.ListProjects(r.Context(), userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project. An optional initial prompt seeds a
// conversation and starts an agent run against the fresh project.
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req createProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), &services.CreateProjectRequest{
		OwnerID: userID,
		Name:    req.Name,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	resp := createProjectResponse{Project: project}

	if prompt := strings.TrimSpace(req.InitialPrompt); prompt != "" {
		conversationID, messageID, err := h.seedConversation(r, project.ID, prompt)
		if err != nil {
			// The project exists; report it and let the client retry the
			// conversation separately.
			h.logger.Error("failed to seed initial conversation",
				"project_id", project.ID,
				"error", err,
			)
		} else {
			resp.ConversationID = conversationID
			resp.MessageID = messageID
		}
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// GetProject retrieves a project by ID
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project ID is required")
		return
	}

	project, err := h.projectService.GetProject(r.Context(), id, userID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// seedConversation creates the project's first conversation, appends the
// prompt and a processing placeholder, and starts the run.
func (h *ProjectHandler) seedConversation(r *http.Request, projectID, prompt string) (string, string, error) {
	ctx := r.Context()

	conversation, err := h.ledger.CreateConversation(ctx, projectID, "")
	if err != nil {
		return "", "", err
	}

	if _, err := h.ledger.AppendMessage(ctx, &services.AppendMessageRequest{
		ConversationID: conversation.ID,
		ProjectID:      projectID,
		Role:           chat.RoleUser,
		Content:        prompt,
	}); err != nil {
		return "", "", err
	}

	processing := chat.StatusProcessing
	placeholder, err := h.ledger.AppendMessage(ctx, &services.AppendMessageRequest{
		ConversationID: conversation.ID,
		ProjectID:      projectID,
		Role:           chat.RoleAssistant,
		Status:         &processing,
	})
	if err != nil {
		return "", "", err
	}

	h.runner.Start(&agent.Run{
		ProjectID:      projectID,
		ConversationID: conversation.ID,
		MessageID:      placeholder.ID,
		UserText:       prompt,
	})

	return conversation.ID, placeholder.ID, nil
}
