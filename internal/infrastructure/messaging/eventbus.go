// Package messaging provides the in-process event bus wiring domain events
// to their handlers. The bus is deliberately in-process: every event source
// and consumer lives in the same binary.
package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mektep-hub/mektep-school-hub/internal/domain/shared"
)

// InMemoryBus dispatches events synchronously to subscribed handlers.
// Handler errors are logged, never propagated to the publisher; a failed
// notification must not fail the command that produced the event.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]shared.EventHandler
	logger   *zap.Logger
}

// NewInMemoryBus creates a new InMemoryBus.
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (b *InMemoryBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("event handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("handler", handler.Name()))
	return nil
}

// Publish delivers the event to every handler subscribed to its type.
func (b *InMemoryBus) Publish(ctx context.Context, event shared.Event) error {
	b.mu.RLock()
	handlers := append([]shared.EventHandler(nil), b.handlers[event.EventType()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", string(event.EventType())),
				zap.String("handler", h.Name()),
				zap.String("aggregate_id", event.AggregateID()),
				zap.Error(err))
		}
	}
	return nil
}
