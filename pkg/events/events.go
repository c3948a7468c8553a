// Package events provides the named-event fan-out the protocol engine
// publishes its lifecycle and mail notifications through. The engine
// depends only on the Bus interface; Emitter is the default in-process
// implementation.
package events

import "sync"

// Handler consumes one event payload.
type Handler func(payload interface{})

// Bus is the fan-out capability the engine requires: emit named events
// and drop every subscription at once on stop.
type Bus interface {
	// Emit delivers payload to every handler subscribed to event.
	Emit(event string, payload interface{})

	// Subscribe registers a handler for an event name.
	Subscribe(event string, handler Handler)

	// Clear removes all subscriptions.
	Clear()
}

// Emitter is a mutex-guarded synchronous Bus. Handlers run on the
// emitting goroutine in subscription order, so subscribers must not
// block.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for an event name.
func (e *Emitter) Subscribe(event string, handler Handler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
}

// Emit delivers payload to the handlers subscribed to event.
func (e *Emitter) Emit(event string, payload interface{}) {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
}

// Clear removes all subscriptions.
func (e *Emitter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[string][]Handler)
}
