package services

import (
	"context"

	"polaris/internal/domain/models/filestore"
)

// CreateFileRequest carries the inputs for file creation. ParentID nil means
// root level. ContentBase64 is decoded and stored through the blob capability
// instead of inline content.
type CreateFileRequest struct {
	ProjectID     string  `json:"project_id"`
	ParentID      *string `json:"parent_id"`
	Name          string  `json:"name"`
	Content       string  `json:"content"`
	ContentBase64 string  `json:"content_base64,omitempty"`
}

// CreateFolderRequest carries the inputs for folder creation.
type CreateFolderRequest struct {
	ProjectID string  `json:"project_id"`
	ParentID  *string `json:"parent_id"`
	Name      string  `json:"name"`
}

// BatchFileInput is one entry of a batch file creation under a shared parent.
type BatchFileInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// BatchFileResult reports the per-item outcome of a batch create. Err is empty
// on success. One collision never fails the rest of the batch.
type BatchFileResult struct {
	Name   string `json:"name"`
	NodeID string `json:"node_id,omitempty"`
	Err    string `json:"error,omitempty"`
}

// TreeService owns the virtual file tree and its structural invariants:
// same-kind sibling uniqueness, folder-typed parents in the same project, and
// an acyclic parent relation. It is the single mutation path shared by the
// human UI and the agent's tool adapter.
type TreeService interface {
	// CreateFile creates a file node. Fails with a ConflictError when a live
	// file with the same name exists under the same parent, and with
	// ErrInvalidParent when the parent is absent or not a folder.
	CreateFile(ctx context.Context, req *CreateFileRequest) (*filestore.Node, error)

	// CreateFolder creates a folder node with the same parent/conflict rules,
	// scoped to folder-kind collisions only.
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*filestore.Node, error)

	// CreateFiles creates a batch of files under one parent, reporting
	// per-item success or failure.
	CreateFiles(ctx context.Context, projectID string, parentID *string, files []BatchFileInput) ([]BatchFileResult, error)

	// Rename renames a node in place. The conflict check excludes the node
	// itself, so renaming to the current name never spuriously collides.
	Rename(ctx context.Context, nodeID, newName string) (*filestore.Node, error)

	// UpdateContent replaces a file's content. Fails with ErrNotAFile for
	// folder nodes.
	UpdateContent(ctx context.Context, nodeID, content string) (*filestore.Node, error)

	// ListChildren returns live nodes directly under parentID (nil = root),
	// folders before files, lexicographic within each group.
	ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error)

	// ListProject returns every node of the project in the same ordering.
	ListProject(ctx context.Context, projectID string) ([]filestore.Node, error)

	// DeleteRecursive deletes a node and all its descendants post-order,
	// releasing blob references along the way. Deleting a missing node is a
	// no-op, not an error.
	DeleteRecursive(ctx context.Context, nodeID string) error

	// Read returns a node by ID.
	Read(ctx context.Context, nodeID string) (*filestore.Node, error)
}
