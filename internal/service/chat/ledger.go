package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"polaris/internal/config"
	"polaris/internal/domain"
	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/repositories"
	"polaris/internal/domain/services"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	logger           *slog.Logger
}

// NewLedgerService creates a new conversation ledger service
func NewLedgerService(
	conversationRepo repositories.ConversationRepository,
	messageRepo repositories.MessageRepository,
	logger *slog.Logger,
) services.LedgerService {
	return &ledgerService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		logger:           logger,
	}
}

// CreateConversation creates a conversation. An empty title gets the default
// sentinel, which marks the conversation as eligible for title generation.
func (s *ledgerService) CreateConversation(ctx context.Context, projectID, title string) (*chat.Conversation, error) {
	if title == "" {
		title = chat.DefaultConversationTitle
	}

	err := validation.Validate(title, validation.Length(1, config.MaxConversationTitleLength))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conversation := &chat.Conversation{
		ProjectID: projectID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

// GetConversation returns a conversation by ID
func (s *ledgerService) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	return s.conversationRepo.GetByID(ctx, id)
}

// ListConversations lists a project's conversations, most recent first
func (s *ledgerService) ListConversations(ctx context.Context, projectID string) ([]chat.Conversation, error) {
	return s.conversationRepo.ListByProject(ctx, projectID)
}

// UpdateTitle sets a generated title on the conversation
func (s *ledgerService) UpdateTitle(ctx context.Context, conversationID, title string) error {
	err := validation.Validate(title,
		validation.Required,
		validation.Length(1, config.MaxConversationTitleLength),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	return s.conversationRepo.UpdateTitle(ctx, conversationID, title)
}

// AppendMessage appends a message to a conversation. An assistant message
// appended in processing status bumps the conversation timestamp so the
// conversation list reflects activity while the agent runs.
func (s *ledgerService) AppendMessage(ctx context.Context, req *services.AppendMessageRequest) (*chat.Message, error) {
	if err := validateAppendRequest(req); err != nil {
		return nil, err
	}

	message := &chat.Message{
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		Role:           req.Role,
		Content:        req.Content,
		Status:         req.Status,
		CreatedAt:      time.Now(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status == chat.StatusProcessing {
		if err := s.conversationRepo.Touch(ctx, req.ConversationID, time.Now()); err != nil {
			s.logger.Warn("failed to touch conversation after append",
				"conversation_id", req.ConversationID,
				"error", err,
			)
		}
	}

	return message, nil
}

// SetMessageContent writes the final assistant content. The underlying update
// is conditional on the message still being in processing status; when a
// cancellation won the race the write is dropped and false comes back.
func (s *ledgerService) SetMessageContent(ctx context.Context, messageID, content string) (bool, error) {
	applied, err := s.messageRepo.CompleteIfProcessing(ctx, messageID, content)
	if err != nil {
		return false, err
	}

	if !applied {
		s.logger.Info("final content dropped, message already terminal",
			"message_id", messageID,
		)
	}

	return applied, nil
}

// SetMessageStatus transitions a message's status unconditionally. Only the
// cancelled transition goes through here.
func (s *ledgerService) SetMessageStatus(ctx context.Context, messageID string, status chat.MessageStatus) error {
	return s.messageRepo.UpdateStatus(ctx, messageID, status)
}

// ListMessages lists all messages of a conversation in order
func (s *ledgerService) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	return s.messageRepo.ListByConversation(ctx, conversationID)
}

// RecentMessages returns the most recent limit messages in chronological order
func (s *ledgerService) RecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = config.RecentMessageWindow
	}
	return s.messageRepo.ListRecent(ctx, conversationID, limit)
}

// ProcessingMessages returns all assistant messages currently processing in
// the project
func (s *ledgerService) ProcessingMessages(ctx context.Context, projectID string) ([]chat.Message, error) {
	return s.messageRepo.ListProcessing(ctx, projectID)
}

func validateAppendRequest(req *services.AppendMessageRequest) error {
	err := validation.Errors{
		"conversation_id": validation.Validate(req.ConversationID, validation.Required),
		"project_id":      validation.Validate(req.ProjectID, validation.Required),
		"role":            validation.Validate(req.Role, validation.Required, validation.In(chat.RoleUser, chat.RoleAssistant)),
		"content":         validation.Validate(req.Content, validation.Length(0, config.MaxMessageLength)),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// User messages never carry a status; assistant messages always do
	if req.Role == chat.RoleUser && req.Status != nil {
		return fmt.Errorf("%w: user messages carry no status", domain.ErrValidation)
	}
	if req.Role == chat.RoleAssistant && req.Status == nil {
		return fmt.Errorf("%w: assistant messages require a status", domain.ErrValidation)
	}

	return nil
}
