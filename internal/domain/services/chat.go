package services

import (
	"context"

	"polaris/internal/domain/models/chat"
)

// AppendMessageRequest carries the inputs for appending a message to a
// conversation. Status is set only for assistant messages.
type AppendMessageRequest struct {
	ConversationID string
	ProjectID      string
	Role           string
	Content        string
	Status         *chat.MessageStatus
}

// LedgerService owns conversations and messages and their status transitions.
// The assistant message state machine is processing -> completed (via
// SetMessageContent) or processing -> cancelled (via SetMessageStatus); both
// are terminal.
type LedgerService interface {
	// CreateConversation creates a conversation with the given title, or the
	// default sentinel title when empty.
	CreateConversation(ctx context.Context, projectID, title string) (*chat.Conversation, error)

	// GetConversation returns a conversation by ID.
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)

	// ListConversations lists a project's conversations, most recent first.
	ListConversations(ctx context.Context, projectID string) ([]chat.Conversation, error)

	// UpdateTitle sets a generated title on the conversation.
	UpdateTitle(ctx context.Context, conversationID, title string) error

	// AppendMessage appends a message. Appending an assistant message in
	// processing status bumps the conversation's timestamp.
	AppendMessage(ctx context.Context, req *AppendMessageRequest) (*chat.Message, error)

	// SetMessageContent sets the final content and forces status=completed.
	// This is the single processing -> completed path; the write is dropped
	// when the message already reached a terminal status, and false is
	// returned in that case.
	SetMessageContent(ctx context.Context, messageID, content string) (bool, error)

	// SetMessageStatus transitions a message's status. Used for the cancelled
	// path only.
	SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error

	// ListMessages lists all messages of a conversation in order.
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)

	// RecentMessages returns the most recent limit messages in chronological
	// order, used to build agent context.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)

	// ProcessingMessages returns all assistant messages currently processing
	// in the project.
	ProcessingMessages(ctx context.Context, projectID string) ([]chat.Message, error)
}
