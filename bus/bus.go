// Package bus implements the synchronous inter-agent message bus.
//
// The bus is deliberately cooperative: Publish drives handlers inline, so
// delivery order equals publish call order. Handler failures never cross the
// publish boundary as panics; each delivery carries its own result or error.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/codecrew-ai/codecrew/internal/metrics"
	"github.com/codecrew-ai/codecrew/types"
)

// Handler processes one message for a participant. A handler may return a
// reply message (nil when the message needs no reply) or an error.
type Handler func(msg types.Message) (*types.Message, error)

// Delivery is the outcome of handing one message to one handler.
type Delivery struct {
	Receiver string
	Reply    *types.Message
	Err      error
}

// MessageBus routes messages between named participants.
// Exactly one handler is registered per participant name; re-subscribing
// replaces the previous handler. The receiver name types.Broadcast is a
// reserved fan-out target, not a real participant.
type MessageBus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string // subscription order, for deterministic fan-out
	history  []types.Message
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewMessageBus creates an empty bus.
func NewMessageBus(logger *zap.Logger) *MessageBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageBus{
		handlers: make(map[string]Handler),
		logger:   logger.With(zap.String("component", "message_bus")),
	}
}

// SetCollector attaches a metrics collector; every publish is then counted
// per message type.
func (b *MessageBus) SetCollector(c *metrics.Collector) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = c
}

// Subscribe registers the handler for a participant name, replacing any
// previous registration.
func (b *MessageBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[name]; !exists {
		b.order = append(b.order, name)
	}
	b.handlers[name] = handler
	b.logger.Debug("participant subscribed", zap.String("participant", name))
}

// Unsubscribe removes a participant's handler.
func (b *MessageBus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[name]; !exists {
		return
	}
	delete(b.handlers, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish appends the message to history and dispatches it.
//
// Broadcast messages go to every subscribed handler except the one
// registered under the sender's name. A named receiver gets exactly its own
// handler; an unsubscribed receiver yields no deliveries, which is not an
// error. Handlers run inline, in subscription order for broadcasts.
func (b *MessageBus) Publish(msg types.Message) []Delivery {
	b.mu.Lock()
	b.history = append(b.history, msg)
	targets := b.targetsLocked(msg)
	collector := b.metrics
	b.mu.Unlock()

	if collector != nil {
		collector.RecordMessagePublished(string(msg.Type))
	}

	// Handlers run outside the lock: a handler is allowed to publish.
	deliveries := make([]Delivery, 0, len(targets))
	for _, t := range targets {
		reply, err := t.handler(msg)
		if err != nil {
			b.logger.Warn("handler failed",
				zap.String("receiver", t.name),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
		deliveries = append(deliveries, Delivery{Receiver: t.name, Reply: reply, Err: err})
	}
	return deliveries
}

type target struct {
	name    string
	handler Handler
}

func (b *MessageBus) targetsLocked(msg types.Message) []target {
	if msg.Receiver == types.Broadcast {
		targets := make([]target, 0, len(b.order))
		for _, name := range b.order {
			if name == msg.Sender {
				continue
			}
			targets = append(targets, target{name: name, handler: b.handlers[name]})
		}
		return targets
	}
	if h, ok := b.handlers[msg.Receiver]; ok {
		return []target{{name: msg.Receiver, handler: h}}
	}
	return nil
}

// History returns all published messages in publish order. A non-empty
// participant filters to messages it sent or received.
func (b *MessageBus) History(participant string) []types.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if participant == "" {
		return append([]types.Message(nil), b.history...)
	}
	var filtered []types.Message
	for _, m := range b.history {
		if m.Sender == participant || m.Receiver == participant {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// ClearHistory empties the history list.
func (b *MessageBus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
