package a2a

import (
	"context"
	"time"
)

// Handler receives messages delivered to a subscribed identity. Handlers
// run synchronously on the publisher's goroutine and must be fast and
// non-blocking; a panicking handler is isolated and logged without
// aborting delivery to later handlers.
type Handler func(Message)

// Bus is the in-process delivery contract between agent identities.
// Implementations queue messages per recipient, fan out to subscribers on
// publish, and retain a bounded history for tracing.
type Bus interface {
	// Publish routes a message to the explicit receiver when given,
	// otherwise to the message's metadata receiver. It reports false,
	// without error, when no target can be resolved.
	Publish(msg Message, receiver ...string) bool

	// Receive removes and returns the next queued message for the
	// recipient, preferring the first match when a type filter is set.
	// With a positive timeout it blocks, polling at PollInterval, until a
	// match appears, the timeout elapses or ctx is cancelled; with a zero
	// timeout it is a non-blocking poll. Nil means no message.
	Receive(ctx context.Context, recipient string, timeout time.Duration, filter MessageType) *Message

	// Subscribe registers a handler for the recipient and returns an
	// opaque subscription id consumed by Unsubscribe.
	Subscribe(recipient string, h Handler) string

	// Unsubscribe removes a previously registered handler. Unknown ids
	// are ignored.
	Unsubscribe(recipient, subscriptionID string)

	// History returns the most recent messages, newest first, optionally
	// filtered by trace and/or correlation id.
	History(traceID, correlationID string, limit int) []Message

	// Clear drains a recipient's queue, returning how many messages were
	// discarded.
	Clear(recipient string) int

	// QueueSize reports the number of messages pending for a recipient.
	QueueSize(recipient string) int
}
