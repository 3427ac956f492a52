package tools

import (
	"context"
	"fmt"
	"strings"

	"polaris/internal/domain/services"
)

// ListFilesTool implements the 'listFiles' tool for listing the children of
// a folder (or the project root).
type ListFilesTool struct {
	projectID string
	tree      services.TreeService
}

// NewListFilesTool creates a new ListFilesTool instance.
func NewListFilesTool(projectID string, tree services.TreeService) *ListFilesTool {
	return &ListFilesTool{projectID: projectID, tree: tree}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - parentId (string, optional): folder ID to list; omit for root level
func (t *ListFilesTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	parentID, err := parentParam(input)
	if err != nil {
		return nil, err
	}

	nodes, err := t.tree.ListChildren(ctx, t.projectID, parentID)
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return "The folder is empty.", nil
	}

	var sb strings.Builder
	for _, node := range nodes {
		fmt.Fprintf(&sb, "[%s] %s (id: %s)\n", node.Kind, node.Name, node.ID)
	}
	return sb.String(), nil
}

// ReadFilesTool implements the 'readFiles' tool for reading file contents by ID.
type ReadFilesTool struct {
	projectID string
	tree      services.TreeService
	config    *ToolConfig
}

// NewReadFilesTool creates a new ReadFilesTool instance.
func NewReadFilesTool(projectID string, tree services.TreeService, config *ToolConfig) *ReadFilesTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &ReadFilesTool{projectID: projectID, tree: tree, config: config}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - fileIds (array of strings, required): file IDs to read
//
// Each file is reported individually; a missing file does not fail the batch.
func (t *ReadFilesTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	ids, err := stringSliceParam(input, "fileIds")
	if err != nil {
		return nil, err
	}
	if len(ids) > t.config.MaxBatchFiles {
		return nil, fmt.Errorf("too many files: %d exceeds the limit of %d", len(ids), t.config.MaxBatchFiles)
	}

	var sb strings.Builder
	for _, id := range ids {
		node, err := t.tree.Read(ctx, id)
		if err != nil {
			fmt.Fprintf(&sb, "=== %s ===\nError: %v\n\n", id, err)
			continue
		}
		if node.ProjectID != t.projectID {
			fmt.Fprintf(&sb, "=== %s ===\nError: file not found\n\n", id)
			continue
		}
		if node.IsFolder() {
			fmt.Fprintf(&sb, "=== %s ===\nError: %s is a folder, not a file\n\n", node.Name, node.Name)
			continue
		}

		content := ""
		if node.Content != nil {
			content = *node.Content
		} else if node.BlobRef != nil {
			content = fmt.Sprintf("(binary file, blob ref %s)", *node.BlobRef)
		}
		if len(content) > t.config.MaxReadSize {
			content = content[:t.config.MaxReadSize] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "=== %s ===\n%s\n\n", node.Name, content)
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}

// CreateFilesTool implements the 'createFiles' tool for batch file creation
// under a shared parent.
type CreateFilesTool struct {
	projectID string
	tree      services.TreeService
	config    *ToolConfig
}

// NewCreateFilesTool creates a new CreateFilesTool instance.
func NewCreateFilesTool(projectID string, tree services.TreeService, config *ToolConfig) *CreateFilesTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &CreateFilesTool{projectID: projectID, tree: tree, config: config}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - files (array of {name, content}, required)
//   - parentId (string, optional): folder to create under; omit for root
//
// Results are reported per file; a name collision fails that file only.
func (t *CreateFilesTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	parentID, err := parentParam(input)
	if err != nil {
		return nil, err
	}

	rawFiles, exists := input["files"]
	if !exists {
		return nil, fmt.Errorf("missing required parameter: files")
	}
	items, ok := rawFiles.([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("parameter files must be a non-empty array")
	}
	if len(items) > t.config.MaxBatchFiles {
		return nil, fmt.Errorf("too many files: %d exceeds the limit of %d", len(items), t.config.MaxBatchFiles)
	}

	batch := make([]services.BatchFileInput, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("files[%d] must be an object with name and content", i)
		}
		name, err := stringParam(entry, "name")
		if err != nil {
			return nil, fmt.Errorf("files[%d]: %v", i, err)
		}
		content, err := rawStringParam(entry, "content")
		if err != nil {
			return nil, fmt.Errorf("files[%d]: %v", i, err)
		}
		batch = append(batch, services.BatchFileInput{Name: name, Content: content})
	}

	results, err := t.tree.CreateFiles(ctx, t.projectID, parentID, batch)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(&sb, "%s: failed (%s)\n", r.Name, r.Err)
		} else {
			fmt.Fprintf(&sb, "%s: created (id: %s)\n", r.Name, r.NodeID)
		}
	}
	return sb.String(), nil
}

// CreateFolderTool implements the 'createFolder' tool.
type CreateFolderTool struct {
	projectID string
	tree      services.TreeService
}

// NewCreateFolderTool creates a new CreateFolderTool instance.
func NewCreateFolderTool(projectID string, tree services.TreeService) *CreateFolderTool {
	return &CreateFolderTool{projectID: projectID, tree: tree}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - name (string, required)
//   - parentId (string, optional)
func (t *CreateFolderTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	name, err := stringParam(input, "name")
	if err != nil {
		return nil, err
	}
	parentID, err := parentParam(input)
	if err != nil {
		return nil, err
	}

	folder, err := t.tree.CreateFolder(ctx, &services.CreateFolderRequest{
		ProjectID: t.projectID,
		ParentID:  parentID,
		Name:      name,
	})
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("Folder '%s' created (id: %s)", folder.Name, folder.ID), nil
}

// RenameFileTool implements the 'renameFile' tool. Despite the name it works
// for folders too; the target is any node ID.
type RenameFileTool struct {
	projectID string
	tree      services.TreeService
}

// NewRenameFileTool creates a new RenameFileTool instance.
func NewRenameFileTool(projectID string, tree services.TreeService) *RenameFileTool {
	return &RenameFileTool{projectID: projectID, tree: tree}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - fileId (string, required)
//   - newName (string, required)
func (t *RenameFileTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	fileID, err := stringParam(input, "fileId")
	if err != nil {
		return nil, err
	}
	newName, err := stringParam(input, "newName")
	if err != nil {
		return nil, err
	}

	if err := t.checkOwnership(ctx, fileID); err != nil {
		return nil, err
	}

	node, err := t.tree.Rename(ctx, fileID, newName)
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("Renamed to '%s'", node.Name), nil
}

func (t *RenameFileTool) checkOwnership(ctx context.Context, nodeID string) error {
	node, err := t.tree.Read(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.ProjectID != t.projectID {
		return fmt.Errorf("file not found: %s", nodeID)
	}
	return nil
}

// DeleteFilesTool implements the 'deleteFiles' tool. Folders are deleted
// recursively with everything under them.
type DeleteFilesTool struct {
	projectID string
	tree      services.TreeService
}

// NewDeleteFilesTool creates a new DeleteFilesTool instance.
func NewDeleteFilesTool(projectID string, tree services.TreeService) *DeleteFilesTool {
	return &DeleteFilesTool{projectID: projectID, tree: tree}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - fileIds (array of strings, required): node IDs to delete
func (t *DeleteFilesTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	ids, err := stringSliceParam(input, "fileIds")
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, id := range ids {
		node, err := t.tree.Read(ctx, id)
		if err != nil {
			fmt.Fprintf(&sb, "%s: already gone\n", id)
			continue
		}
		if node.ProjectID != t.projectID {
			fmt.Fprintf(&sb, "%s: not found\n", id)
			continue
		}
		if err := t.tree.DeleteRecursive(ctx, id); err != nil {
			fmt.Fprintf(&sb, "%s: failed (%v)\n", node.Name, err)
			continue
		}
		fmt.Fprintf(&sb, "%s: deleted\n", node.Name)
	}
	return sb.String(), nil
}

// UpdateFileTool implements the 'updateFile' tool for replacing a file's
// content.
type UpdateFileTool struct {
	projectID string
	tree      services.TreeService
}

// NewUpdateFileTool creates a new UpdateFileTool instance.
func NewUpdateFileTool(projectID string, tree services.TreeService) *UpdateFileTool {
	return &UpdateFileTool{projectID: projectID, tree: tree}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - fileId (string, required)
//   - content (string, required; empty string clears the file)
func (t *UpdateFileTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	fileID, err := stringParam(input, "fileId")
	if err != nil {
		return nil, err
	}
	content, err := rawStringParam(input, "content")
	if err != nil {
		return nil, err
	}
	if _, exists := input["content"]; !exists {
		return nil, fmt.Errorf("missing required parameter: content")
	}

	existing, err := t.tree.Read(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if existing.ProjectID != t.projectID {
		return nil, fmt.Errorf("file not found: %s", fileID)
	}

	node, err := t.tree.UpdateContent(ctx, fileID, content)
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf("File '%s' updated", node.Name), nil
}
