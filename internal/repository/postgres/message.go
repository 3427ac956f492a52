package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"polaris/internal/domain"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/repositories"
)

// PostgresMessageRepository implements the MessageRepository interface
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(config *RepositoryConfig) repositories.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new message
func (r *PostgresMessageRepository) Create(ctx context.Context, message *chat.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, project_id, role, content, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, r.tables.Messages)

	err := r.pool.QueryRow(ctx, query,
		message.ID,
		message.ConversationID,
		message.ProjectID,
		message.Role,
		message.Content,
		message.Status,
		message.CreatedAt,
	).Scan(&message.CreatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("conversation %s: %w", message.ConversationID, domain.ErrNotFound)
		}
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

// GetByID retrieves a message by ID
func (r *PostgresMessageRepository) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, project_id, role, content, status, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Messages)

	var message chat.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&message.ID,
		&message.ConversationID,
		&message.ProjectID,
		&message.Role,
		&message.Content,
		&message.Status,
		&message.CreatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &message, nil
}

// ListByConversation lists all messages in chronological order
func (r *PostgresMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]chat.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, project_id, role, content, status, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, r.tables.Messages)

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecent returns the most recent limit messages of a conversation in
// chronological order. The query walks the created_at index backwards, then
// the window is reversed in memory so callers get oldest-first.
func (r *PostgresMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, project_id, role, content, status, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, r.tables.Messages)

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ListProcessing returns every message in the project still in processing
// status, across all conversations
func (r *PostgresMessageRepository) ListProcessing(ctx context.Context, projectID string) ([]chat.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, project_id, role, content, status, created_at
		FROM %s
		WHERE project_id = $1 AND status = $2
		ORDER BY created_at ASC
	`, r.tables.Messages)

	rows, err := r.pool.Query(ctx, query, projectID, chat.StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("list processing messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// UpdateStatus sets the message status unconditionally
func (r *PostgresMessageRepository) UpdateStatus(ctx context.Context, id string, status chat.MessageStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1
		WHERE id = $2
	`, r.tables.Messages)

	result, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// CompleteIfProcessing atomically writes the final content, but only while
// the message is still processing. A cancelled message keeps its cancelled
// status and the stale pipeline write is dropped on the floor.
func (r *PostgresMessageRepository) CompleteIfProcessing(ctx context.Context, id, content string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, status = $2
		WHERE id = $3 AND status = $4
	`, r.tables.Messages)

	result, err := r.pool.Exec(ctx, query, content, chat.StatusCompleted, id, chat.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("complete message: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func scanMessages(rows pgx.Rows) ([]chat.Message, error) {
	var messages []chat.Message
	for rows.Next() {
		var message chat.Message
		err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.ProjectID,
			&message.Role,
			&message.Content,
			&message.Status,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if messages == nil {
		messages = []chat.Message{}
	}

	return messages, nil
}
