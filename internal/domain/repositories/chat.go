package repositories

import (
	"context"
	"time"

	"polaris/internal/domain/models/chat"
)

// ConversationRepository defines data access operations for conversations.
type ConversationRepository interface {
	// Create creates a new conversation.
	Create(ctx context.Context, conversation *chat.Conversation) error

	// GetByID retrieves a conversation by ID.
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)

	// ListByProject lists conversations in a project, most recently updated first.
	ListByProject(ctx context.Context, projectID string) ([]chat.Conversation, error)

	// UpdateTitle sets the conversation title and bumps updated_at.
	UpdateTitle(ctx context.Context, id, title string) error

	// Touch bumps the conversation's updated_at timestamp.
	Touch(ctx context.Context, id string, at time.Time) error
}

// MessageRepository defines data access operations for messages.
// Messages are indexed by conversation and, for assistant messages, by
// (project_id, status) so cancellation can fan out in one query.
type MessageRepository interface {
	// Create inserts a new message. The ID is generated if empty.
	Create(ctx context.Context, message *chat.Message) error

	// GetByID retrieves a message by ID.
	GetByID(ctx context.Context, id string) (*chat.Message, error)

	// ListByConversation lists all messages in chronological order.
	ListByConversation(ctx context.Context, conversationID string) ([]chat.Message, error)

	// ListRecent returns the most recent limit messages of a conversation in
	// chronological order (oldest of the window first).
	ListRecent(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)

	// ListProcessing returns every assistant message in the project that is
	// currently in processing status, across all conversations.
	ListProcessing(ctx context.Context, projectID string) ([]chat.Message, error)

	// UpdateStatus sets the message status unconditionally. Used for the
	// cancelled transition and for forcing processing at creation.
	UpdateStatus(ctx context.Context, id string, status chat.MessageStatus) error

	// CompleteIfProcessing atomically sets content and status=completed, but
	// only while the message is still processing. Returns false when the
	// message already reached a terminal status and the write was dropped.
	CompleteIfProcessing(ctx context.Context, id, content string) (bool, error)
}
