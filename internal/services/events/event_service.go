package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/interfaces"
)

// Service is a process-local pub/sub bus for job lifecycle events.
type Service struct {
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	wildcard    []interfaces.EventHandler
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates the event bus.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for one event type.
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
}

// SubscribeAll registers a handler for every event type.
func (s *Service) SubscribeAll(handler interfaces.EventHandler) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wildcard = append(s.wildcard, handler)
}

// Publish delivers an event to all matching subscribers. Delivery is
// synchronous; handlers must not block.
func (s *Service) Publish(_ context.Context, event interfaces.Event) error {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.subscribers[event.Type])+len(s.wildcard))
	handlers = append(handlers, s.subscribers[event.Type]...)
	handlers = append(handlers, s.wildcard...)
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}
