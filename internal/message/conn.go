package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ziadkadry99/ewriter/internal/logging"
)

// ErrClosed is returned for requests that cannot complete because the
// connection has gone away.
var ErrClosed = errors.New("message connection closed")

// Transport moves envelopes between two peers. Write may be called
// concurrently; Read is only called from one goroutine.
type Transport interface {
	Read(ctx context.Context) (Envelope, error)
	Write(ctx context.Context, env Envelope) error
	Close() error
}

// Conn correlates outgoing requests with replies and feeds incoming
// requests to a Router in arrival order.
type Conn struct {
	t      Transport
	router *Router

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Envelope
	closed  bool

	incoming chan Envelope
	once     sync.Once
}

// NewConn creates a connection over t. Incoming requests go to router,
// which may be nil for a peer that only sends.
func NewConn(t Transport, router *Router) *Conn {
	if router == nil {
		router = NewRouter()
	}
	return &Conn{
		t:        t,
		router:   router,
		pending:  make(map[uint64]chan Envelope),
		incoming: make(chan Envelope, 64),
	}
}

// Run reads from the transport until it fails or ctx is cancelled. Pending
// requests then fail with ErrClosed.
func (c *Conn) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	stop := context.AfterFunc(ctx, func() { _ = c.t.Close() })
	defer stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		c.serve(ctx)
	}()
	defer func() {
		c.shutdown()
		close(c.incoming)
		<-workerDone
	}()

	for {
		env, err := c.t.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if env.IsReply() {
			c.deliver(env)
			continue
		}

		select {
		case c.incoming <- env:
		case <-ctx.Done():
			return ctx.Err()
		default:
			log.Warn().Str("type", string(env.Type)).Msg("incoming queue full, rejecting message")
			_ = c.t.Write(ctx, Envelope{Type: TypeAck, ReplyTo: env.ID, Error: "peer busy"})
		}
	}
}

// serve handles incoming requests one at a time so their effects apply in
// the order they were sent.
func (c *Conn) serve(ctx context.Context) {
	for env := range c.incoming {
		reply := c.router.Dispatch(ctx, env)
		if err := c.t.Write(ctx, reply); err != nil {
			logging.FromContext(ctx).Debug().Err(err).Str("type", string(env.Type)).Msg("could not send reply")
		}
	}
}

func (c *Conn) deliver(env Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ReplyTo]
	if ok {
		delete(c.pending, env.ReplyTo)
	}
	c.mu.Unlock()

	if ok {
		ch <- env
	}
}

func (c *Conn) shutdown() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		_ = c.t.Close()
	})
}

// Close closes the transport. Run returns shortly after.
func (c *Conn) Close() error {
	return c.t.Close()
}

func (c *Conn) send(ctx context.Context, t Type, payload any) (uint64, chan Envelope, error) {
	env := Envelope{ID: c.nextID.Add(1), Type: t}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding %s payload: %w", t, err)
		}
		env.Payload = b
	}

	ch := make(chan Envelope, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, nil, ErrClosed
	}
	c.pending[env.ID] = ch
	c.mu.Unlock()

	if err := c.t.Write(ctx, env); err != nil {
		c.forget(env.ID)
		return 0, nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return env.ID, ch, nil
}

func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Request sends a message and waits for its reply. A reply carrying an
// error is returned as *RemoteError.
func (c *Conn) Request(ctx context.Context, t Type, payload any) (Envelope, error) {
	id, ch, err := c.send(ctx, t, payload)
	if err != nil {
		return Envelope{}, err
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return Envelope{}, ErrClosed
		}
		if reply.Error != "" {
			return reply, &RemoteError{Type: t, Message: reply.Error}
		}
		return reply, nil
	case <-ctx.Done():
		c.forget(id)
		return Envelope{}, ctx.Err()
	}
}

// Notify sends a message without waiting for the acknowledgement.
func (c *Conn) Notify(ctx context.Context, t Type, payload any) error {
	id, _, err := c.send(ctx, t, payload)
	if err != nil {
		return err
	}
	c.forget(id)
	return nil
}
