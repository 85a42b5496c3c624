// Package bus provides an in-process typed event bus. It is injected
// into services instead of being reached through a global, so tests can
// run with an isolated instance.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/anchored-notes/anchored-sync-service/internal/domain"
	"github.com/anchored-notes/anchored-sync-service/pkg/timex"
)

// Handler receives one event. Handlers run synchronously on the
// emitter's goroutine, in subscription order.
type Handler func(event domain.Event)

type subscription struct {
	id      int64
	handler Handler
}

// Bus dispatches events to type-scoped and wildcard subscribers.
type Bus struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[domain.EventType][]subscription
	all    []subscription
	logger *zap.Logger
}

// New creates a bus. A nil logger uses a nop logger.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[domain.EventType][]subscription),
		logger: logger,
	}
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe function.
func (b *Bus) Subscribe(t domain.EventType, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[t]
		for i, s := range list {
			if s.id == id {
				b.subs[t] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.all {
			if s.id == id {
				b.all = append(b.all[:i:i], b.all[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers an event to all matching handlers. A panicking handler
// is logged and skipped; it never breaks the emitter or the remaining
// handlers.
func (b *Bus) Emit(t domain.EventType, payload interface{}) {
	event := domain.Event{
		Type:      t,
		Payload:   payload,
		Timestamp: timex.Now(),
	}

	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.subs[t])+len(b.all))
	handlers = append(handlers, b.subs[t]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, s := range handlers {
		b.dispatch(s, event)
	}
}

func (b *Bus) dispatch(s subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic",
				zap.String("event", string(event.Type)),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	s.handler(event)
}
