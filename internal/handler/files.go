package handler

import (
	"log/slog"
	"net/http"

	"polaris/internal/domain"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/services"
	"polaris/internal/httputil"
)

// FileHandler handles file tree HTTP requests for the human UI. It shares the
// tree service with the agent's tool adapter, so both surfaces enforce the
// same invariants.
type FileHandler struct {
	tree           services.TreeService
	projectService services.ProjectService
	logger         *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(
	tree services.TreeService,
	projectService services.ProjectService,
	logger *slog.Logger,
) *FileHandler {
	return &FileHandler{
		tree:           tree,
		projectService: projectService,
		logger:         logger,
	}
}

type createFileRequest struct {
	ProjectID     string  `json:"project_id"`
	ParentID      *string `json:"parent_id"`
	Name          string  `json:"name"`
	Content       string  `json:"content"`
	ContentBase64 string  `json:"content_base64,omitempty"`
}

type createFolderRequest struct {
	ProjectID string  `json:"project_id"`
	ParentID  *string `json:"parent_id"`
	Name      string  `json:"name"`
}

type createBatchRequest struct {
	ProjectID string                    `json:"project_id"`
	ParentID  *string                   `json:"parent_id"`
	Files     []services.BatchFileInput `json:"files"`
}

type updateNodeRequest struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ListProjectFiles returns the project's full flat listing, folders first.
// GET /api/projects/{id}/files
func (h *FileHandler) ListProjectFiles(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !h.requireProject(w, r, projectID) {
		return
	}

	nodes, err := h.tree.ListProject(r.Context(), projectID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// ListChildren returns the nodes directly under a parent folder, or under the
// root when parent_id is absent.
// GET /api/projects/{id}/children?parent_id=...
func (h *FileHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if !h.requireProject(w, r, projectID) {
		return
	}

	var parentID *string
	if v := r.URL.Query().Get("parent_id"); v != "" {
		parentID = &v
	}

	nodes, err := h.tree.ListChildren(r.Context(), projectID, parentID)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// CreateFile creates a file node
// POST /api/files
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.requireProject(w, r, req.ProjectID) {
		return
	}

	node, err := h.tree.CreateFile(r.Context(), &services.CreateFileRequest{
		ProjectID:     req.ProjectID,
		ParentID:      req.ParentID,
		Name:          req.Name,
		Content:       req.Content,
		ContentBase64: req.ContentBase64,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// CreateFiles creates a batch of files under one parent with per-item results
// POST /api/files/batch
func (h *FileHandler) CreateFiles(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.requireProject(w, r, req.ProjectID) {
		return
	}
	if len(req.Files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "files array is required")
		return
	}

	results, err := h.tree.CreateFiles(r.Context(), req.ProjectID, req.ParentID, req.Files)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// CreateFolder creates a folder node
// POST /api/folders
func (h *FileHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.requireProject(w, r, req.ProjectID) {
		return
	}

	node, err := h.tree.CreateFolder(r.Context(), &services.CreateFolderRequest{
		ProjectID: req.ProjectID,
		ParentID:  req.ParentID,
		Name:      req.Name,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, node)
}

// GetNode retrieves a single node
// GET /api/files/{id}
func (h *FileHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node := h.ownedNode(w, r)
	if node == nil {
		return
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// UpdateNode renames a node and/or replaces a file's content
// PATCH /api/files/{id}
func (h *FileHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	node := h.ownedNode(w, r)
	if node == nil {
		return
	}

	var req updateNodeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Content == nil {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var err error
	if req.Name != nil {
		node, err = h.tree.Rename(r.Context(), node.ID, *req.Name)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}
	if req.Content != nil {
		node, err = h.tree.UpdateContent(r.Context(), node.ID, *req.Content)
		if err != nil {
			respondDomainError(w, h.logger, err)
			return
		}
	}

	httputil.RespondJSON(w, http.StatusOK, node)
}

// DeleteNode deletes a node and, for folders, everything inside it
// DELETE /api/files/{id}
func (h *FileHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	node := h.ownedNode(w, r)
	if node == nil {
		return
	}

	if err := h.tree.DeleteRecursive(r.Context(), node.ID); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireProject checks that the path/body project belongs to the caller.
// Writes the error response itself and reports whether to proceed.
func (h *FileHandler) requireProject(w http.ResponseWriter, r *http.Request, projectID string) bool {
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

// ownedNode loads the node from the path and checks project ownership.
// Returns nil after writing the response when the node is unavailable.
func (h *FileHandler) ownedNode(w http.ResponseWriter, r *http.Request) *filestore.Node {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "node ID is required")
		return nil
	}

	node, err := h.tree.Read(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return nil
	}

	if _, err := h.projectService.GetProject(r.Context(), node.ProjectID, httputil.GetUserID(r)); err != nil {
		// Hide foreign nodes rather than confirming they exist
		respondDomainError(w, h.logger, domain.ErrNotFound)
		return nil
	}

	return node
}
