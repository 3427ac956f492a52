package agent

import (
	"context"
	"log/slog"

	"polaris/internal/domain/models/chat"
	"polaris/internal/domain/services"
)

// Coordinator cancels in-flight agent work. Sending a new message in a
// project first cancels every processing assistant message there, so at most
// one agent run is live per project.
type Coordinator struct {
	ledger  services.LedgerService
	signals services.CancelPublisher
	logger  *slog.Logger
}

// NewCoordinator creates a new cancellation coordinator.
func NewCoordinator(ledger services.LedgerService, signals services.CancelPublisher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		ledger:  ledger,
		signals: signals,
		logger:  logger,
	}
}

// CancelAllProcessing cancels every processing assistant message in the
// project and returns the cancelled message IDs. With nothing processing it
// returns an empty slice and performs no writes.
//
// The status flip happens before the cancel signal goes out: once a message
// reads cancelled, the conditional final write of any still-running pipeline
// is guaranteed to be dropped, signal delivery or not.
func (c *Coordinator) CancelAllProcessing(ctx context.Context, projectID string) ([]string, error) {
	processing, err := c.ledger.ProcessingMessages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(processing) == 0 {
		return []string{}, nil
	}

	cancelled := make([]string, 0, len(processing))
	for _, msg := range processing {
		if err := c.ledger.SetMessageStatus(ctx, msg.ID, chat.StatusCancelled); err != nil {
			c.logger.Warn("failed to mark message cancelled",
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}
		cancelled = append(cancelled, msg.ID)

		if err := c.signals.PublishCancel(msg.ID); err != nil {
			c.logger.Warn("failed to publish cancel signal",
				"message_id", msg.ID,
				"error", err,
			)
		}
	}

	c.logger.Info("cancelled processing messages",
		"project_id", projectID,
		"count", len(cancelled),
	)

	return cancelled, nil
}
