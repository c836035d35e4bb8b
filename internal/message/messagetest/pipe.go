// Package messagetest provides in-process transports for testing message
// connections.
package messagetest

import (
	"context"
	"sync"

	"github.com/ziadkadry99/ewriter/internal/message"
)

type pipeEnd struct {
	in   <-chan message.Envelope
	out  chan<- message.Envelope
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected in-process transports. Closing either end
// closes both.
func Pipe() (message.Transport, message.Transport) {
	ab := make(chan message.Envelope, 16)
	ba := make(chan message.Envelope, 16)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

func (p *pipeEnd) Read(ctx context.Context) (message.Envelope, error) {
	select {
	case env := <-p.in:
		return env, nil
	case <-p.done:
		return message.Envelope{}, message.ErrClosed
	case <-ctx.Done():
		return message.Envelope{}, ctx.Err()
	}
}

func (p *pipeEnd) Write(ctx context.Context, env message.Envelope) error {
	select {
	case <-p.done:
		return message.ErrClosed
	default:
	}
	select {
	case p.out <- env:
		return nil
	case <-p.done:
		return message.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
