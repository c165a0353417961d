package events

import (
	"context"
	"sync"
)

// Handler receives a change published on a subscribed channel.
type Handler func(context.Context, Change)

// Dispatcher fans changes out to channel subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(channel string, filters []Filter, handler Handler) (cancel func())
}

type subscriber struct {
	filters []Filter
	handler Handler
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[string]map[uint64]subscriber
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[string]map[uint64]subscriber),
	}
}

// Publish synchronously invokes the matching handlers of the change's channel.
func (d *inMemoryDispatcher) Publish(ctx context.Context, change Change) error {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.listeners[change.Channel]))
	for _, sub := range d.listeners[change.Channel] {
		if MatchAny(sub.filters, change) {
			handlers = append(handlers, sub.handler)
		}
	}
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, change)
	}
	return nil
}

// Subscribe registers a handler; the returned func removes it and is safe to call twice.
func (d *inMemoryDispatcher) Subscribe(channel string, filters []Filter, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	if d.listeners[channel] == nil {
		d.listeners[channel] = make(map[uint64]subscriber)
	}
	d.listeners[channel][id] = subscriber{filters: append([]Filter(nil), filters...), handler: handler}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		subs, ok := d.listeners[channel]
		if !ok {
			return
		}
		delete(subs, id)
		if len(subs) == 0 {
			delete(d.listeners, channel)
		}
	}
}
