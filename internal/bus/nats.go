package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectCancel is the NATS subject for agent run cancellation signals.
const SubjectCancel = "polaris.agent.cancel"

// CancelSignal is emitted when a processing assistant message is cancelled.
// Runners listening on the subject stop the run keyed by MessageID; runners
// that do not hold the run simply ignore it.
type CancelSignal struct {
	MessageID string `json:"message_id"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// PublishCancel implements the CancelPublisher capability.
func (c *Client) PublishCancel(messageID string) error {
	payload, err := json.Marshal(CancelSignal{MessageID: messageID})
	if err != nil {
		return fmt.Errorf("marshal cancel signal: %w", err)
	}
	return c.conn.Publish(SubjectCancel, payload)
}

// SubscribeCancel registers a handler for cancellation signals. Malformed
// payloads are logged and skipped.
func (c *Client) SubscribeCancel(handler func(messageID string)) error {
	sub, err := c.conn.Subscribe(SubjectCancel, func(msg *nats.Msg) {
		var signal CancelSignal
		if err := json.Unmarshal(msg.Data, &signal); err != nil {
			c.logger.Warn("malformed cancel signal", "error", err)
			return
		}
		handler(signal.MessageID)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectCancel, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", SubjectCancel)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
