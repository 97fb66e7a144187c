// Package bus carries inbound signals (voice, text, pointer, tool activity)
// from transports to the avatar engine.
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

const (
	// Voice events
	EventTypeVoiceStatus EventType = "voice.status"

	// Text events
	EventTypeMessageUpdated EventType = "text.message_updated"

	// Pointer events
	EventTypePointer EventType = "pointer.event"
	EventTypeHover   EventType = "pointer.hover"

	// Tool events
	EventTypeToolActivity EventType = "tool.activity"

	// Avatar events
	EventTypeStateChanged    EventType = "avatar.state_changed"
	EventTypeExpressionShown EventType = "avatar.expression_shown"
)

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// String returns Data[key] as a string, or ""
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Float returns Data[key] as a float64. JSON numbers and ints both work.
func (e Event) Float(key string) float64 {
	switch v := e.Data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns Data[key] as a bool
func (e Event) Bool(key string) bool {
	b, _ := e.Data[key].(bool)
	return b
}

// Handler is a function that handles events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[EventType][]subscription
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
	}
}

// Subscribe adds a handler for an event type. The returned func removes it.
func (b *EventBus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})
	return func() { b.unsubscribe(eventType, id) }
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) func() {
	cancels := make([]func(), 0, len(eventTypes))
	for _, et := range eventTypes {
		cancels = append(cancels, b.Subscribe(et, handler))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (b *EventBus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *EventBus) snapshot(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.handlers[eventType]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	return handlers
}

// Publish sends an event to all subscribed handlers without waiting
func (b *EventBus) Publish(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete. Events
// published back to back from one goroutine reach each handler in order.
func (b *EventBus) PublishSync(event Event) {
	handlers := b.snapshot(event.Type)

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]subscription)
}
