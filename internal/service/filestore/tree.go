package filestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"polaris/internal/domain"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/repositories"
	"polaris/internal/domain/services"
)

// treeService implements the TreeService interface
type treeService struct {
	nodeRepo    repositories.NodeRepository
	projectRepo repositories.ProjectRepository
	blobs       services.BlobStore
	logger      *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	nodeRepo repositories.NodeRepository,
	projectRepo repositories.ProjectRepository,
	blobs services.BlobStore,
	logger *slog.Logger,
) services.TreeService {
	return &treeService{
		nodeRepo:    nodeRepo,
		projectRepo: projectRepo,
		blobs:       blobs,
		logger:      logger,
	}
}

// CreateFile creates a file node under the given parent.
// Base64 payloads are decoded and stored through the blob capability; the
// node then carries a blob_ref instead of inline content.
func (s *treeService) CreateFile(ctx context.Context, req *services.CreateFileRequest) (*filestore.Node, error) {
	normalizeParent(&req.ParentID)

	if err := validateNodeName(req.Name); err != nil {
		return nil, err
	}
	if err := validateFileContent(req.Content); err != nil {
		return nil, err
	}
	if err := s.requireFolderParent(ctx, req.ProjectID, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.checkSiblingConflict(ctx, req.ProjectID, req.ParentID, req.Name, filestore.KindFile, ""); err != nil {
		return nil, err
	}

	node := &filestore.Node{
		ProjectID: req.ProjectID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Kind:      filestore.KindFile,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if req.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64 content", domain.ErrValidation)
		}
		ref, err := s.blobs.Put(ctx, data, "application/octet-stream")
		if err != nil {
			return nil, fmt.Errorf("store file blob: %w", err)
		}
		node.BlobRef = &ref
	} else {
		content := req.Content
		node.Content = &content
	}

	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	s.touchProject(ctx, req.ProjectID)
	return node, nil
}

// CreateFolder creates a folder node. Collisions are checked against folder
// siblings only; a file with the same name may coexist.
func (s *treeService) CreateFolder(ctx context.Context, req *services.CreateFolderRequest) (*filestore.Node, error) {
	normalizeParent(&req.ParentID)

	if err := validateNodeName(req.Name); err != nil {
		return nil, err
	}
	if err := s.requireFolderParent(ctx, req.ProjectID, req.ParentID); err != nil {
		return nil, err
	}
	if err := s.checkSiblingConflict(ctx, req.ProjectID, req.ParentID, req.Name, filestore.KindFolder, ""); err != nil {
		return nil, err
	}

	node := &filestore.Node{
		ProjectID: req.ProjectID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Kind:      filestore.KindFolder,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	s.touchProject(ctx, req.ProjectID)
	return node, nil
}

// CreateFiles creates a batch of files under one parent. Each item succeeds
// or fails on its own; a name collision in the batch never aborts the rest.
func (s *treeService) CreateFiles(ctx context.Context, projectID string, parentID *string, files []services.BatchFileInput) ([]services.BatchFileResult, error) {
	normalizeParent(&parentID)

	if err := s.requireFolderParent(ctx, projectID, parentID); err != nil {
		return nil, err
	}

	results := make([]services.BatchFileResult, 0, len(files))
	for _, f := range files {
		node, err := s.CreateFile(ctx, &services.CreateFileRequest{
			ProjectID: projectID,
			ParentID:  parentID,
			Name:      f.Name,
			Content:   f.Content,
		})
		if err != nil {
			results = append(results, services.BatchFileResult{
				Name: f.Name,
				Err:  err.Error(),
			})
			continue
		}
		results = append(results, services.BatchFileResult{
			Name:   f.Name,
			NodeID: node.ID,
		})
	}

	return results, nil
}

// Rename renames a node in place. The sibling conflict check excludes the
// node itself so renaming to the current name is a no-op, not a collision.
func (s *treeService) Rename(ctx context.Context, nodeID, newName string) (*filestore.Node, error) {
	if err := validateNodeName(newName); err != nil {
		return nil, err
	}

	node, err := s.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	if err := s.checkSiblingConflict(ctx, node.ProjectID, node.ParentID, newName, node.Kind, node.ID); err != nil {
		return nil, err
	}

	node.Name = newName
	node.UpdatedAt = time.Now()
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	s.touchProject(ctx, node.ProjectID)
	return node, nil
}

// UpdateContent replaces a file's inline content. A blob-backed file becomes
// inline again; the old blob is released best-effort.
func (s *treeService) UpdateContent(ctx context.Context, nodeID, content string) (*filestore.Node, error) {
	if err := validateFileContent(content); err != nil {
		return nil, err
	}

	node, err := s.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if !node.IsFile() {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotAFile)
	}

	if node.BlobRef != nil {
		s.releaseBlob(ctx, *node.BlobRef)
		node.BlobRef = nil
	}

	node.Content = &content
	node.UpdatedAt = time.Now()
	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	s.touchProject(ctx, node.ProjectID)
	return node, nil
}

// ListChildren lists the nodes directly under parentID, folders before files
func (s *treeService) ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error) {
	normalizeParent(&parentID)

	if err := s.requireFolderParent(ctx, projectID, parentID); err != nil {
		return nil, err
	}

	return s.nodeRepo.ListChildren(ctx, projectID, parentID)
}

// ListProject lists every node of the project
func (s *treeService) ListProject(ctx context.Context, projectID string) ([]filestore.Node, error) {
	return s.nodeRepo.ListByProject(ctx, projectID)
}

// DeleteRecursive deletes a node and all its descendants, children before
// parents, releasing blob references along the way. Deleting a node that no
// longer exists is a no-op.
func (s *treeService) DeleteRecursive(ctx context.Context, nodeID string) error {
	root, err := s.nodeRepo.GetByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	// Walk the subtree with an explicit stack. Nodes are collected in
	// discovery order (parents first) and deleted in reverse, which gives
	// post-order deletion without recursion.
	subtree := []*filestore.Node{root}
	stack := []*filestore.Node{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !current.IsFolder() {
			continue
		}

		children, err := s.nodeRepo.ListChildren(ctx, current.ProjectID, &current.ID)
		if err != nil {
			return fmt.Errorf("list children of %s: %w", current.ID, err)
		}
		for i := range children {
			child := &children[i]
			subtree = append(subtree, child)
			stack = append(stack, child)
		}
	}

	for i := len(subtree) - 1; i >= 0; i-- {
		node := subtree[i]
		if node.BlobRef != nil {
			s.releaseBlob(ctx, *node.BlobRef)
		}
		if err := s.nodeRepo.Delete(ctx, node.ID); err != nil {
			return fmt.Errorf("delete node %s: %w", node.ID, err)
		}
	}

	s.logger.Debug("subtree deleted",
		"root_id", root.ID,
		"node_count", len(subtree),
	)

	s.touchProject(ctx, root.ProjectID)
	return nil
}

// Read returns a node by ID
func (s *treeService) Read(ctx context.Context, nodeID string) (*filestore.Node, error) {
	return s.nodeRepo.GetByID(ctx, nodeID)
}

// requireFolderParent validates the parent reference for a create or list.
// A nil parent is the root level and always valid.
func (s *treeService) requireFolderParent(ctx context.Context, projectID string, parentID *string) error {
	if parentID == nil {
		return nil
	}

	parent, err := s.nodeRepo.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("parent %s: %w", *parentID, domain.ErrInvalidParent)
		}
		return err
	}
	if parent.ProjectID != projectID {
		return fmt.Errorf("parent %s: %w", *parentID, domain.ErrInvalidParent)
	}
	if !parent.IsFolder() {
		return fmt.Errorf("parent %s: %w", *parentID, domain.ErrNotAFolder)
	}

	return nil
}

// checkSiblingConflict enforces same-kind sibling uniqueness. excludeID skips
// the node being renamed.
func (s *treeService) checkSiblingConflict(ctx context.Context, projectID string, parentID *string, name string, kind filestore.NodeKind, excludeID string) error {
	sibling, err := s.nodeRepo.FindSibling(ctx, projectID, parentID, name, kind)
	if err != nil {
		return err
	}
	if sibling != nil && sibling.ID != excludeID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s '%s' already exists in this folder", kind, name),
			ResourceType: string(kind),
			ResourceID:   sibling.ID,
		}
	}
	return nil
}

// touchProject bumps the project timestamp after a tree mutation. Failures
// are logged, not propagated; the mutation itself already committed.
func (s *treeService) touchProject(ctx context.Context, projectID string) {
	if err := s.projectRepo.Touch(ctx, projectID, time.Now()); err != nil {
		s.logger.Warn("failed to touch project after tree mutation",
			"project_id", projectID,
			"error", err,
		)
	}
}

// releaseBlob deletes a blob reference best-effort. Orphaned blobs are
// preferable to a delete that fails halfway.
func (s *treeService) releaseBlob(ctx context.Context, ref string) {
	if err := s.blobs.Delete(ctx, ref); err != nil {
		s.logger.Warn("failed to release blob",
			"blob_ref", ref,
			"error", err,
		)
	}
}

// normalizeParent maps an empty-string parent to nil so callers can send
// either form for the root level.
func normalizeParent(parentID **string) {
	if *parentID != nil && **parentID == "" {
		*parentID = nil
	}
}
