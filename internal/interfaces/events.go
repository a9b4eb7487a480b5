package interfaces

import "context"

// EventType identifies a published event.
type EventType string

const (
	EventJobCreated   EventType = "job_created"
	EventJobProgress  EventType = "job_progress"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
)

// Event is a loosely-typed notification published to subscribers.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

// EventHandler consumes published events. Handlers must not block.
type EventHandler func(Event)

// EventService is a process-local publish/subscribe bus used to stream job
// lifecycle events to connected clients.
type EventService interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	SubscribeAll(handler EventHandler)
}
