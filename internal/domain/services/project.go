package services

import (
	"context"

	"polaris/internal/domain/models/filestore"
)

// CreateProjectRequest carries the inputs for project creation. OwnerID is
// filled from the authenticated user, never from the request body.
type CreateProjectRequest struct {
	OwnerID string `json:"-"`
	Name    string `json:"name"`
}

// ProjectService owns project lifecycle and ownership checks.
type ProjectService interface {
	// CreateProject creates a new project owned by the requesting user.
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*filestore.Project, error)

	// GetProject returns a project by ID. Returns ErrForbidden when the
	// project exists but belongs to a different owner.
	GetProject(ctx context.Context, id, ownerID string) (*filestore.Project, error)

	// ListProjects returns the user's projects, most recently updated first.
	ListProjects(ctx context.Context, ownerID string) ([]filestore.Project, error)
}
