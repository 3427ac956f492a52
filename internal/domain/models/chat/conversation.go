package chat

import (
	"time"
)

// DefaultConversationTitle is the sentinel title a conversation carries until
// the agent pipeline generates a real one from the first user message.
const DefaultConversationTitle = "New conversation"

type Conversation struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasGeneratedTitle reports whether the title has moved past the sentinel.
func (c *Conversation) HasGeneratedTitle() bool {
	return c.Title != DefaultConversationTitle
}
