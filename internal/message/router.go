package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ziadkadry99/ewriter/internal/logging"
)

// Handler handles a decoded message payload. The returned value becomes the
// reply payload.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Handle calls f(ctx, payload).
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) (any, error) {
	return f(ctx, payload)
}

// Router dispatches envelopes to registered handlers. Handlers of one
// router never run concurrently.
type Router struct {
	mu       sync.RWMutex
	handlers map[Type]Handler

	dispatchMu sync.Mutex
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[Type]Handler)}
}

// Handle registers a handler for a message type, replacing any previous one.
func (r *Router) Handle(t Type, h Handler) error {
	if t == "" {
		return errors.New("message type cannot be empty")
	}
	if h == nil {
		return errors.New("message handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// HandleFunc registers f for a message type.
func (r *Router) HandleFunc(t Type, f func(ctx context.Context, payload json.RawMessage) (any, error)) error {
	return r.Handle(t, HandlerFunc(f))
}

// Dispatch runs the handler for env and always returns a reply envelope:
// the handler's result, or an error for unknown types and failed handlers.
func (r *Router) Dispatch(ctx context.Context, env Envelope) Envelope {
	reply := Envelope{Type: TypeAck, ReplyTo: env.ID}

	r.mu.RLock()
	h, ok := r.handlers[env.Type]
	r.mu.RUnlock()
	if !ok {
		reply.Error = fmt.Sprintf("unknown message type %q", env.Type)
		return reply
	}

	r.dispatchMu.Lock()
	result, err := h.Handle(ctx, env.Payload)
	r.dispatchMu.Unlock()

	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("type", string(env.Type)).Msg("message handler failed")
		reply.Error = err.Error()
		return reply
	}
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			reply.Error = fmt.Sprintf("encoding reply: %v", err)
			return reply
		}
		reply.Payload = b
	}
	return reply
}
