package services

// CancelPublisher delivers cancellation signals to the execution substrate.
// Delivery is fire-and-forget: the signal reaches the run keyed by the
// assistant message ID if it is still in flight, otherwise it is a no-op.
type CancelPublisher interface {
	PublishCancel(messageID string) error
}
