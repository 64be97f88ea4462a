package a2a

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/planmesh/planmesh/logging"
)

// PollInterval is the re-check cadence for a blocking Receive. Tunable via
// BusOptions for tests that want tighter loops.
const PollInterval = 100 * time.Millisecond

// DefaultHistoryLimit bounds the circular history buffer; the oldest entry
// is evicted first.
const DefaultHistoryLimit = 1000

// BusOptions configure an InMemoryBus.
type BusOptions struct {
	Logger       logging.Logger
	HistoryLimit int
	PollInterval time.Duration
}

type subscription struct {
	id      string
	handler Handler
}

// InMemoryBus is a process-local Bus implementation. All queue, history and
// subscriber mutations share one mutex; subscriber handlers are invoked
// outside the critical section, in registration order, on the publisher's
// goroutine.
type InMemoryBus struct {
	mu           sync.Mutex
	queues       map[string][]Message
	subscribers  map[string][]subscription
	history      []Message
	historyLimit int
	pollInterval time.Duration
	logger       logging.Logger
}

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus constructs an empty bus.
func NewInMemoryBus(optFns ...func(o *BusOptions)) *InMemoryBus {
	opts := BusOptions{
		Logger:       logging.NoOpLogger{},
		HistoryLimit: DefaultHistoryLimit,
		PollInterval: PollInterval,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &InMemoryBus{
		queues:       make(map[string][]Message),
		subscribers:  make(map[string][]subscription),
		historyLimit: opts.HistoryLimit,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// Publish implements Bus. Addressing failure is a boolean, not an error.
func (b *InMemoryBus) Publish(msg Message, receiver ...string) bool {
	target := msg.Meta.Receiver
	if len(receiver) > 0 && receiver[0] != "" {
		target = receiver[0]
	}
	if target == "" {
		b.logger.Warn("No receiver resolvable for message",
			"message_id", msg.MessageID, "trace_id", msg.TraceID)
		return false
	}

	b.mu.Lock()
	b.queues[target] = append(b.queues[target], msg)
	b.history = append(b.history, msg)
	if len(b.history) > b.historyLimit {
		b.history = b.history[len(b.history)-b.historyLimit:]
	}
	subs := make([]subscription, len(b.subscribers[target]))
	copy(subs, b.subscribers[target])
	b.mu.Unlock()

	b.logger.Info("Message sent",
		"message_id", msg.MessageID, "message_type", string(msg.MessageType),
		"trace_id", msg.TraceID, "correlation_id", msg.CorrelationID,
		"sender", msg.Meta.Sender, "receiver", target)

	for _, sub := range subs {
		b.dispatch(sub, msg)
	}
	return true
}

// dispatch invokes a single subscriber with panic isolation so one failing
// handler cannot abort delivery to the rest.
func (b *InMemoryBus) dispatch(sub subscription, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Subscriber handler panicked",
				"message_id", msg.MessageID, "trace_id", msg.TraceID, "panic", r)
		}
	}()
	sub.handler(msg)
}

// Receive implements Bus.
func (b *InMemoryBus) Receive(ctx context.Context, recipient string, timeout time.Duration, filter MessageType) *Message {
	deadline := time.Now().Add(timeout)
	for {
		if msg := b.takeLocked(recipient, filter); msg != nil {
			return msg
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.pollInterval):
		}
	}
}

// takeLocked removes the first matching message from the recipient queue.
// FIFO; a type filter matches the earliest message of that type, which is
// not necessarily the queue head.
func (b *InMemoryBus) takeLocked(recipient string, filter MessageType) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.queues[recipient]
	for i, msg := range queue {
		if filter != "" && msg.MessageType != filter {
			continue
		}
		b.queues[recipient] = append(queue[:i:i], queue[i+1:]...)
		m := msg
		return &m
	}
	return nil
}

// Subscribe implements Bus.
func (b *InMemoryBus) Subscribe(recipient string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.subscribers[recipient] = append(b.subscribers[recipient], subscription{id: id, handler: h})
	b.logger.Info("Subscribed handler", "recipient", recipient, "subscription_id", id)
	return id
}

// Unsubscribe implements Bus. Removing an unknown id is a no-op.
func (b *InMemoryBus) Unsubscribe(recipient, subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[recipient]
	for i, sub := range subs {
		if sub.id == subscriptionID {
			b.subscribers[recipient] = append(subs[:i:i], subs[i+1:]...)
			b.logger.Info("Unsubscribed handler", "recipient", recipient, "subscription_id", subscriptionID)
			return
		}
	}
}

// History implements Bus; results are newest first.
func (b *InMemoryBus) History(traceID, correlationID string, limit int) []Message {
	if limit <= 0 {
		limit = 100
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, 0, limit)
	for i := len(b.history) - 1; i >= 0 && len(out) < limit; i-- {
		msg := b.history[i]
		if traceID != "" && msg.TraceID != traceID {
			continue
		}
		if correlationID != "" && msg.CorrelationID != correlationID {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// Clear implements Bus.
func (b *InMemoryBus) Clear(recipient string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := len(b.queues[recipient])
	delete(b.queues, recipient)
	if count > 0 {
		b.logger.Info("Cleared recipient queue", "recipient", recipient, "count", count)
	}
	return count
}

// QueueSize implements Bus.
func (b *InMemoryBus) QueueSize(recipient string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[recipient])
}
