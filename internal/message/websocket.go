package message

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WSTransport carries envelopes as JSON text frames over a websocket.
type WSTransport struct {
	conn *websocket.Conn

	wmu  sync.Mutex
	once sync.Once
}

// NewWSTransport wraps an established websocket connection.
func NewWSTransport(conn *websocket.Conn) *WSTransport {
	return &WSTransport{conn: conn}
}

func (t *WSTransport) Read(ctx context.Context) (Envelope, error) {
	var env Envelope
	if err := t.conn.ReadJSON(&env); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Envelope{}, ErrClosed
		}
		return Envelope{}, err
	}
	return env, nil
}

func (t *WSTransport) Write(ctx context.Context, env Envelope) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = t.conn.SetWriteDeadline(deadline)
	return t.conn.WriteJSON(env)
}

// Close sends a close frame, best effort, and closes the socket.
func (t *WSTransport) Close() error {
	var err error
	t.once.Do(func() {
		t.wmu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.wmu.Unlock()
		err = t.conn.Close()
	})
	return err
}

// IsNormalClose reports whether err marks an orderly end of a connection.
func IsNormalClose(err error) bool {
	return err == nil || errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
