// Package events provides the in-process publish/subscribe bus that decouples
// the lifecycle and worker from consumers such as the websocket hub, the
// event log and the email notifier.
package events

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Wildcard subscribes a handler to every event regardless of name.
const Wildcard = "*"

// Handler receives a published event. Handlers must not assume any particular
// goroutine: publishers invoke them synchronously.
type Handler func(eventType string, payload map[string]any)

type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process event bus. It is constructed once at startup and
// injected into every component that publishes or subscribes.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]subscription
	nextID   int
	log      *logrus.Logger
}

// NewBus initializes an empty bus.
func NewBus(log *logrus.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
		log:      log,
	}
}

// Subscribe registers a handler for an event type and returns a token for
// Unsubscribe. Use events.Wildcard to receive every event.
func (b *Bus) Subscribe(eventType string, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a previously registered handler. Unknown tokens are
// ignored.
func (b *Bus) Unsubscribe(eventType string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish fans the event out to all exact-type and wildcard subscribers, in
// subscription order. A panicking handler is logged and never prevents
// delivery to the remaining handlers or fails the publisher.
func (b *Bus) Publish(eventType string, payload map[string]any) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[eventType])+len(b.handlers[Wildcard]))
	subs = append(subs, b.handlers[eventType]...)
	subs = append(subs, b.handlers[Wildcard]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.dispatch(eventType, payload, sub)
	}
}

func (b *Bus) dispatch(eventType string, payload map[string]any, sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"event_type": eventType,
				"panic":      r,
			}).Error("event handler panicked")
		}
	}()
	sub.handler(eventType, payload)
}
