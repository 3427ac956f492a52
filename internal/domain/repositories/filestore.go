package repositories

import (
	"context"
	"time"

	"polaris/internal/domain/models/filestore"
)

// ProjectRepository defines data access operations for projects.
type ProjectRepository interface {
	// Create creates a new project.
	Create(ctx context.Context, project *filestore.Project) error

	// GetByID retrieves a project by ID.
	GetByID(ctx context.Context, id string) (*filestore.Project, error)

	// ListByOwner lists projects owned by a user, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]filestore.Project, error)

	// Touch bumps the project's updated_at timestamp. Every file tree
	// mutation calls this.
	Touch(ctx context.Context, id string, at time.Time) error
}

// NodeRepository defines data access operations for file tree nodes.
// Nodes are stored flat; the tree shape lives in the parent_id column and its
// (project_id, parent_id) index.
type NodeRepository interface {
	// Create inserts a new node. The ID is generated if empty.
	Create(ctx context.Context, node *filestore.Node) error

	// GetByID retrieves a node by ID.
	GetByID(ctx context.Context, id string) (*filestore.Node, error)

	// Update persists name/content/blob_ref/updated_at changes.
	Update(ctx context.Context, node *filestore.Node) error

	// Delete removes a single node. Missing nodes are not an error.
	Delete(ctx context.Context, id string) error

	// ListChildren lists live nodes directly under parentID (nil = root),
	// ordered folders before files, then lexicographically by name.
	ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error)

	// ListByProject lists every node in a project, folders first then by name.
	ListByProject(ctx context.Context, projectID string) ([]filestore.Node, error)

	// FindSibling returns the live node with the given name and kind under
	// parentID, or nil if none exists.
	FindSibling(ctx context.Context, projectID string, parentID *string, name string, kind filestore.NodeKind) (*filestore.Node, error)
}
