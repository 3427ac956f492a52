package chat

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageStatus is the lifecycle state of an assistant message. User messages
// carry no status; they are born terminal.
type MessageStatus string

const (
	StatusProcessing MessageStatus = "processing"
	StatusCompleted  MessageStatus = "completed"
	StatusCancelled  MessageStatus = "cancelled"
)

// Message is a single entry in a conversation. ProjectID is denormalized so
// cancellation can find every processing message in a project with one query.
type Message struct {
	ID             string         `json:"id" db:"id"`
	ConversationID string         `json:"conversation_id" db:"conversation_id"`
	ProjectID      string         `json:"project_id" db:"project_id"`
	Role           string         `json:"role" db:"role"`
	Content        string         `json:"content" db:"content"`
	Status         *MessageStatus `json:"status,omitempty" db:"status"` // assistant messages only
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// IsTerminal reports whether the message status admits no further transition.
// processing -> completed and processing -> cancelled are the only moves.
func (m *Message) IsTerminal() bool {
	if m.Status == nil {
		return true // user messages never transition
	}
	return *m.Status == StatusCompleted || *m.Status == StatusCancelled
}
