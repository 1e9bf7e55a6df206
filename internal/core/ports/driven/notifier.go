package driven

import "context"

// Notifier delivers text to a messaging channel. Delivery mechanics
// (transport, formatting conventions of the target system, retries at the
// transport level) belong to the adapter; the core only knows
// "send text to channel X".
type Notifier interface {
	// Send delivers text to the channel. A non-nil error means the message
	// was not delivered and the operation is safe to retry.
	Send(ctx context.Context, channel, text string) error
}
