package filestore

import (
	"time"
)

// NodeKind discriminates files from folders. A file and a folder may share a
// name under the same parent; two live siblings of the same kind may not.
type NodeKind string

const (
	KindFile   NodeKind = "file"
	KindFolder NodeKind = "folder"
)

// Node is a single entry in a project's virtual file tree. Nodes are stored
// flat and keyed by (project_id, parent_id); ParentID nil means root level.
type Node struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	ParentID  *string   `json:"parent_id" db:"parent_id"` // NULL = root level
	Name      string    `json:"name" db:"name"`
	Kind      NodeKind  `json:"kind" db:"kind"`
	Content   *string   `json:"content,omitempty" db:"content"`   // file kind only; NULL when blob-backed
	BlobRef   *string   `json:"blob_ref,omitempty" db:"blob_ref"` // external blob storage reference
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsFile reports whether the node is a file.
func (n *Node) IsFile() bool {
	return n.Kind == KindFile
}
