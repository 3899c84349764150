package consumer

import (
	"context"
	"fmt"
)

// Router dispatches decoded messages to per-event-type handlers.
type Router struct {
	handlers map[string]Handler
	fallback Handler
}

// NewRouter builds an empty router. Unrouted event types fail unless a
// fallback handler is set.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Route registers a handler for the given event type, replacing any previous one.
func (r *Router) Route(eventType string, handler Handler) *Router {
	r.handlers[eventType] = handler
	return r
}

// Fallback sets the handler used when no event-type route matches.
func (r *Router) Fallback(handler Handler) *Router {
	r.fallback = handler
	return r
}

// Handle forwards the message to the matching handler.
func (r *Router) Handle(ctx context.Context, msg Message) error {
	if handler, ok := r.handlers[msg.EventType]; ok {
		return handler.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	return fmt.Errorf("no handler for event type %q", msg.EventType)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Message) error

// Handle calls the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
