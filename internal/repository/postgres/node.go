package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"polaris/internal/domain"
	"polaris/internal/domain/models/filestore"
	"polaris/internal/domain/repositories"
)

// PostgresNodeRepository implements the NodeRepository interface
type PostgresNodeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(config *RepositoryConfig) repositories.NodeRepository {
	return &PostgresNodeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new node
func (r *PostgresNodeRepository) Create(ctx context.Context, node *filestore.Node) error {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, parent_id, name, kind, content, blob_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, r.tables.Nodes)

	err := r.pool.QueryRow(ctx, query,
		node.ID,
		node.ProjectID,
		node.ParentID,
		node.Name,
		node.Kind,
		node.Content,
		node.BlobRef,
		node.CreatedAt,
		node.UpdatedAt,
	).Scan(&node.CreatedAt, &node.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%s '%s' already exists in this folder", node.Kind, node.Name),
				ResourceType: string(node.Kind),
				ResourceID:   node.ID,
			}
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("parent of node '%s': %w", node.Name, domain.ErrNotFound)
		}
		return fmt.Errorf("create node: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID
func (r *PostgresNodeRepository) GetByID(ctx context.Context, id string) (*filestore.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, parent_id, name, kind, content, blob_ref, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Nodes)

	var node filestore.Node
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&node.ID,
		&node.ProjectID,
		&node.ParentID,
		&node.Name,
		&node.Kind,
		&node.Content,
		&node.BlobRef,
		&node.CreatedAt,
		&node.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}

	return &node, nil
}

// Update persists name/content/blob_ref/updated_at changes
func (r *PostgresNodeRepository) Update(ctx context.Context, node *filestore.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, content = $2, blob_ref = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Nodes)

	result, err := r.pool.Exec(ctx, query,
		node.Name,
		node.Content,
		node.BlobRef,
		node.UpdatedAt,
		node.ID,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%s '%s' already exists in this folder", node.Kind, node.Name),
				ResourceType: string(node.Kind),
				ResourceID:   node.ID,
			}
		}
		return fmt.Errorf("update node: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a single node. Missing nodes are not an error; recursive
// deletion retries subtrees and must stay idempotent.
func (r *PostgresNodeRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Nodes)

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}

	return nil
}

// ListChildren lists nodes directly under parentID, folders before files,
// then by name. parentID nil selects the root level.
func (r *PostgresNodeRepository) ListChildren(ctx context.Context, projectID string, parentID *string) ([]filestore.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, parent_id, name, kind, content, blob_ref, created_at, updated_at
		FROM %s
		WHERE project_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		ORDER BY CASE WHEN kind = 'folder' THEN 0 ELSE 1 END, name ASC
	`, r.tables.Nodes)

	rows, err := r.pool.Query(ctx, query, projectID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// ListByProject lists every node in a project, folders first then by name
func (r *PostgresNodeRepository) ListByProject(ctx context.Context, projectID string) ([]filestore.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, parent_id, name, kind, content, blob_ref, created_at, updated_at
		FROM %s
		WHERE project_id = $1
		ORDER BY CASE WHEN kind = 'folder' THEN 0 ELSE 1 END, name ASC
	`, r.tables.Nodes)

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// FindSibling returns the node with the given name and kind under parentID,
// or nil when none exists. The kind filter is what lets a file and a folder
// share a name in the same directory.
func (r *PostgresNodeRepository) FindSibling(ctx context.Context, projectID string, parentID *string, name string, kind filestore.NodeKind) (*filestore.Node, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, parent_id, name, kind, content, blob_ref, created_at, updated_at
		FROM %s
		WHERE project_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3 AND kind = $4
	`, r.tables.Nodes)

	var node filestore.Node
	err := r.pool.QueryRow(ctx, query, projectID, parentID, name, kind).Scan(
		&node.ID,
		&node.ProjectID,
		&node.ParentID,
		&node.Name,
		&node.Kind,
		&node.Content,
		&node.BlobRef,
		&node.CreatedAt,
		&node.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find sibling: %w", err)
	}

	return &node, nil
}

func scanNodes(rows pgx.Rows) ([]filestore.Node, error) {
	var nodes []filestore.Node
	for rows.Next() {
		var node filestore.Node
		err := rows.Scan(
			&node.ID,
			&node.ProjectID,
			&node.ParentID,
			&node.Name,
			&node.Kind,
			&node.Content,
			&node.BlobRef,
			&node.CreatedAt,
			&node.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	if nodes == nil {
		nodes = []filestore.Node{}
	}

	return nodes, nil
}
