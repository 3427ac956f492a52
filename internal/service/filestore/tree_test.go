package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"polaris/internal/domain"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/services"
)

// fakeNodeRepo is an in-memory NodeRepository for service tests.
type fakeNodeRepo struct {
	nodes  map[string]*filestore.Node
	nextID int
}

func newFakeNodeRepo() *fakeNodeRepo {
	return &fakeNodeRepo{nodes: make(map[string]*filestore.Node)}
}

func (r *fakeNodeRepo) Create(ctx context.Context, node *filestore.Node) error {
	if node.ID == "" {
		r.nextID++
		node.ID = fmt.Sprintf("node-%d", r.nextID)
	}
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *fakeNodeRepo) GetByID(ctx context.Context, id string) (*filestore.Node, error) {
	node, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	copied := *node
	return &copied, nil
}

func (r *fakeNodeRepo) Update(ctx context.Context, node *filestore.Node) error {
	if _, ok := r.nodes[node.ID]; !ok {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}
	copied := *node
	r.nodes[node.ID] = &copied
	return nil
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id string) error {
	delete(r.nodes, id)
	return nil
}

func (r *fakeNodeRepo) ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error) {
	var out []filestore.Node
	for _, node := range r.nodes {
		if node.ProjectID != projectID {
			continue
		}
		if !sameParent(node.ParentID, parentID) {
			continue
		}
		out = append(out, *node)
	}
	sortNodes(out)
	return out, nil
}

func (r *fakeNodeRepo) ListByProject(ctx context.Context, projectID string) ([]filestore.Node, error) {
	var out []filestore.Node
	for _, node := range r.nodes {
		if node.ProjectID == projectID {
			out = append(out, *node)
		}
	}
	sortNodes(out)
	return out, nil
}

func (r *fakeNodeRepo) FindSibling(ctx context.Context, projectID string, parentID *string, name string, kind filestore.NodeKind) (*filestore.Node, error) {
	for _, node := range r.nodes {
		if node.ProjectID == projectID && sameParent(node.ParentID, parentID) && node.Name == name && node.Kind == kind {
			copied := *node
			return &copied, nil
		}
	}
	return nil, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortNodes(nodes []filestore.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == filestore.KindFolder
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// fakeProjectRepo records Touch calls.
type fakeProjectRepo struct {
	touched int
}

func (r *fakeProjectRepo) Create(ctx context.Context, p *filestore.Project) error { return nil }
func (r *fakeProjectRepo) GetByID(ctx context.Context, id string) (*filestore.Project, error) {
	return &filestore.Project{ID: id}, nil
}
func (r *fakeProjectRepo) ListByOwner(ctx context.Context, ownerID string) ([]filestore.Project, error) {
	return nil, nil
}
func (r *fakeProjectRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.touched++
	return nil
}

// fakeBlobStore records stored and deleted refs.
type fakeBlobStore struct {
	stored  int
	deleted []string
}

func (b *fakeBlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	b.stored++
	return fmt.Sprintf("blob-%d", b.stored), nil
}

func (b *fakeBlobStore) URL(ctx context.Context, ref string) (string, error) {
	return "https://blobs.example/" + ref, nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, ref string) error {
	b.deleted = append(b.deleted, ref)
	return nil
}

func newTestService() (services.TreeService, *fakeNodeRepo, *fakeProjectRepo, *fakeBlobStore) {
	nodeRepo := newFakeNodeRepo()
	projectRepo := &fakeProjectRepo{}
	blobs := &fakeBlobStore{}
	svc := NewTreeService(nodeRepo, projectRepo, blobs, slog.Default())
	return svc, nodeRepo, projectRepo, blobs
}

func fileReq(projectID string, parentID *string, name, content string) *services.CreateFileRequest {
	return &services.CreateFileRequest{
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
		Content:   content,
	}
}

func folderReq(projectID string, parentID *string, name string) *services.CreateFolderRequest {
	return &services.CreateFolderRequest{
		ProjectID: projectID,
		ParentID:  parentID,
		Name:      name,
	}
}

func strPtr(s string) *string { return &s }

func TestCreateFile_SameKindConflict(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "notes.md", "hello"))
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err = svc.CreateFile(ctx, fileReq("proj-1", nil, "notes.md", "other"))
	if err == nil {
		t.Fatal("expected conflict for duplicate file name")
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %T", err)
	}
	if conflictErr.ResourceType != "file" {
		t.Errorf("expected resource type 'file', got %s", conflictErr.ResourceType)
	}
	if conflictErr.ResourceID == "" {
		t.Error("expected conflicting resource ID to be set")
	}
}

func TestCreateFolder_MayShareNameWithFile(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "docs", ""))
	if err != nil {
		t.Fatalf("create file failed: %v", err)
	}

	// A folder with the same name is not a collision
	folder, err := svc.CreateFolder(ctx, folderReq("proj-1", nil, "docs"))
	if err != nil {
		t.Fatalf("create folder with same name as file failed: %v", err)
	}
	if !folder.IsFolder() {
		t.Error("expected folder kind")
	}
}

func TestCreateFile_ParentValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	t.Run("missing parent", func(t *testing.T) {
		_, err := svc.CreateFile(ctx, fileReq("proj-1", strPtr("ghost"), "a.txt", ""))
		if !errors.Is(err, domain.ErrInvalidParent) {
			t.Errorf("expected ErrInvalidParent, got %v", err)
		}
	})

	t.Run("file parent", func(t *testing.T) {
		file, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "leaf.txt", ""))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		_, err = svc.CreateFile(ctx, fileReq("proj-1", &file.ID, "child.txt", ""))
		if !errors.Is(err, domain.ErrNotAFolder) {
			t.Errorf("expected ErrNotAFolder, got %v", err)
		}
	})

	t.Run("parent from another project", func(t *testing.T) {
		folder, err := svc.CreateFolder(ctx, folderReq("proj-other", nil, "elsewhere"))
		if err != nil {
			t.Fatalf("create folder failed: %v", err)
		}

		_, err = svc.CreateFile(ctx, fileReq("proj-1", &folder.ID, "b.txt", ""))
		if !errors.Is(err, domain.ErrInvalidParent) {
			t.Errorf("expected ErrInvalidParent, got %v", err)
		}
	})

	t.Run("empty string parent means root", func(t *testing.T) {
		node, err := svc.CreateFile(ctx, fileReq("proj-1", strPtr(""), "rooted.txt", ""))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if node.ParentID != nil {
			t.Error("expected nil parent for empty-string parent ID")
		}
	})
}

func TestCreateFile_NameValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"", "a/b.txt", strings.Repeat("x", 256)} {
		_, err := svc.CreateFile(ctx, fileReq("proj-1", nil, name, ""))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("name %q: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestCreateFile_Base64GoesToBlobStorage(t *testing.T) {
	svc, _, _, blobs := newTestService()
	ctx := context.Background()

	req := fileReq("proj-1", nil, "image.png", "")
	req.ContentBase64 = "aGVsbG8=" // "hello"
	node, err := svc.CreateFile(ctx, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if node.BlobRef == nil {
		t.Fatal("expected blob-backed node")
	}
	if node.Content != nil {
		t.Error("blob-backed node should not carry inline content")
	}
	if blobs.stored != 1 {
		t.Errorf("expected 1 blob stored, got %d", blobs.stored)
	}
}

func TestListChildren_FoldersBeforeFiles(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"zeta.txt", "alpha.txt"} {
		if _, err := svc.CreateFile(ctx, fileReq("proj-1", nil, name, "")); err != nil {
			t.Fatalf("create file failed: %v", err)
		}
	}
	for _, name := range []string{"zoo", "bar"} {
		if _, err := svc.CreateFolder(ctx, folderReq("proj-1", nil, name)); err != nil {
			t.Fatalf("create folder failed: %v", err)
		}
	}

	children, err := svc.ListChildren(ctx, "proj-1", nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var got []string
	for _, c := range children {
		got = append(got, c.Name)
	}
	want := []string{"bar", "zoo", "alpha.txt", "zeta.txt"}
	if len(got) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRename_SelfExclusion(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	file, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "same.txt", ""))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Renaming to the current name must not collide with itself
	renamed, err := svc.Rename(ctx, file.ID, "same.txt")
	if err != nil {
		t.Fatalf("rename to current name failed: %v", err)
	}
	if renamed.Name != "same.txt" {
		t.Errorf("expected name unchanged, got %s", renamed.Name)
	}
}

func TestRename_ConflictWithSibling(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "a.txt", "")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	file, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "b.txt", ""))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Rename(ctx, file.ID, "a.txt")
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateContent_RejectsFolder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	folder, err := svc.CreateFolder(ctx, folderReq("proj-1", nil, "docs"))
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}

	_, err = svc.UpdateContent(ctx, folder.ID, "content")
	if !errors.Is(err, domain.ErrNotAFile) {
		t.Errorf("expected ErrNotAFile, got %v", err)
	}
}

func TestUpdateContent_ReleasesOldBlob(t *testing.T) {
	svc, _, _, blobs := newTestService()
	ctx := context.Background()

	req := fileReq("proj-1", nil, "image.png", "")
	req.ContentBase64 = "aGVsbG8="
	node, err := svc.CreateFile(ctx, req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdateContent(ctx, node.ID, "plain text now")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.BlobRef != nil {
		t.Error("expected blob ref cleared after inline update")
	}
	if len(blobs.deleted) != 1 {
		t.Errorf("expected old blob released, got %d deletions", len(blobs.deleted))
	}
}

func TestDeleteRecursive(t *testing.T) {
	svc, nodeRepo, _, blobs := newTestService()
	ctx := context.Background()

	// root folder with a nested folder, an inline file, and a blob file
	root, err := svc.CreateFolder(ctx, folderReq("proj-1", nil, "root"))
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	sub, err := svc.CreateFolder(ctx, folderReq("proj-1", &root.ID, "sub"))
	if err != nil {
		t.Fatalf("create folder failed: %v", err)
	}
	if _, err := svc.CreateFile(ctx, fileReq("proj-1", &sub.ID, "deep.txt", "x")); err != nil {
		t.Fatalf("create file failed: %v", err)
	}
	blobFile := fileReq("proj-1", &root.ID, "pic.png", "")
	blobFile.ContentBase64 = "aGVsbG8="
	if _, err := svc.CreateFile(ctx, blobFile); err != nil {
		t.Fatalf("create blob file failed: %v", err)
	}

	// an unrelated sibling that must survive
	keeper, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "keep.txt", ""))
	if err != nil {
		t.Fatalf("create file failed: %v", err)
	}

	if err := svc.DeleteRecursive(ctx, root.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	remaining, err := nodeRepo.ListByProject(ctx, "proj-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != keeper.ID {
		t.Errorf("expected only the unrelated file to survive, got %d nodes", len(remaining))
	}
	if len(blobs.deleted) != 1 {
		t.Errorf("expected blob released during recursive delete, got %d", len(blobs.deleted))
	}
}

func TestDeleteRecursive_MissingNodeIsNoop(t *testing.T) {
	svc, _, projectRepo, _ := newTestService()
	ctx := context.Background()

	if err := svc.DeleteRecursive(ctx, "never-existed"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if projectRepo.touched != 0 {
		t.Error("no-op delete should not touch the project")
	}
}

func TestCreateFiles_PartialFailure(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	results, err := svc.CreateFiles(ctx, "proj-1", nil, []services.BatchFileInput{
		{Name: "a.txt", Content: "1"},
		{Name: "a.txt", Content: "2"},
		{Name: "b.txt", Content: "3"},
	})
	if err != nil {
		t.Fatalf("batch create failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != "" || results[0].NodeID == "" {
		t.Errorf("expected first item to succeed, got %+v", results[0])
	}
	if results[1].Err == "" {
		t.Error("expected second item to fail with a conflict")
	}
	if results[2].Err != "" || results[2].NodeID == "" {
		t.Errorf("expected third item to succeed despite earlier conflict, got %+v", results[2])
	}
}

func TestMutationsTouchProject(t *testing.T) {
	svc, _, projectRepo, _ := newTestService()
	ctx := context.Background()

	file, err := svc.CreateFile(ctx, fileReq("proj-1", nil, "a.txt", ""))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Rename(ctx, file.ID, "b.txt"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if _, err := svc.UpdateContent(ctx, file.ID, "new"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := svc.DeleteRecursive(ctx, file.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if projectRepo.touched != 4 {
		t.Errorf("expected 4 project touches, got %d", projectRepo.touched)
	}
}
