package services

import (
	"context"
)

// BlobStore is the external blob capability used by file nodes that hold
// binary content. Refs are opaque strings owned by the store.
type BlobStore interface {
	// Put stores bytes and returns a blob reference.
	Put(ctx context.Context, data []byte, contentType string) (string, error)

	// URL resolves a blob reference to a fetchable URL.
	URL(ctx context.Context, ref string) (string, error)

	// Delete releases a blob reference. Deleting an unknown ref is a no-op.
	Delete(ctx context.Context, ref string) error
}
