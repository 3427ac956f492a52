package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"polaris/internal/domain"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/repositories"
)

// PostgresConversationRepository implements the ConversationRepository interface
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new conversation
func (r *PostgresConversationRepository) Create(ctx context.Context, conversation *chat.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, r.tables.Conversations)

	err := r.pool.QueryRow(ctx, query,
		conversation.ID,
		conversation.ProjectID,
		conversation.Title,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	).Scan(&conversation.CreatedAt, &conversation.UpdatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", conversation.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by ID
func (r *PostgresConversationRepository) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, title, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Conversations)

	var conversation chat.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.ProjectID,
		&conversation.Title,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conversation, nil
}

// ListByProject lists conversations in a project, most recently updated first
func (r *PostgresConversationRepository) ListByProject(ctx context.Context, projectID string) ([]chat.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, title, created_at, updated_at
		FROM %s
		WHERE project_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Conversations)

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []chat.Conversation
	for rows.Next() {
		var conversation chat.Conversation
		err := rows.Scan(
			&conversation.ID,
			&conversation.ProjectID,
			&conversation.Title,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	if conversations == nil {
		conversations = []chat.Conversation{}
	}

	return conversations, nil
}

// UpdateTitle sets the conversation title and bumps updated_at
func (r *PostgresConversationRepository) UpdateTitle(ctx context.Context, id, title string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Conversations)

	result, err := r.pool.Exec(ctx, query, title, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Touch bumps the conversation's updated_at timestamp
func (r *PostgresConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET updated_at = $1
		WHERE id = $2
	`, r.tables.Conversations)

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
