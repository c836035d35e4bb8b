package message_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ewriter/internal/message"
	"github.com/ziadkadry99/ewriter/internal/message/messagetest"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

func startPair(t *testing.T, serverRouter, clientRouter *message.Router) (*message.Conn, *message.Conn) {
	t.Helper()
	a, b := messagetest.Pipe()
	server := message.NewConn(a, serverRouter)
	client := message.NewConn(b, clientRouter)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.Run(ctx)
	go client.Run(ctx)
	return server, client
}

func TestConnRequestReply(t *testing.T) {
	r := message.NewRouter()
	require.NoError(t, r.HandleFunc(message.TypeGetShortcutInfo, func(ctx context.Context, payload json.RawMessage) (any, error) {
		return message.ShortcutInfo{Shortcut: "Ctrl+Shift+E"}, nil
	}))
	_, client := startPair(t, r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := client.Request(ctx, message.TypeGetShortcutInfo, nil)
	require.NoError(t, err)
	var info message.ShortcutInfo
	require.NoError(t, reply.Decode(&info))
	assert.Equal(t, "Ctrl+Shift+E", info.Shortcut)
}

func TestConnRemoteError(t *testing.T) {
	_, client := startPair(t, message.NewRouter(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Request(ctx, "MISSING", nil)
	var remote *message.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, message.Type("MISSING"), remote.Type)
}

func TestConnNotificationsAreHandledInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []uint64
	done := make(chan struct{})

	clientRouter := message.NewRouter()
	require.NoError(t, clientRouter.HandleFunc(message.TypeTranslationStarted, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var p message.TranslationStarted
		_ = json.Unmarshal(payload, &p)
		mu.Lock()
		seen = append(seen, p.RequestID)
		if len(seen) == 20 {
			close(done)
		}
		mu.Unlock()
		return nil, nil
	}))
	server, _ := startPair(t, nil, clientRouter)

	for i := 1; i <= 20; i++ {
		require.NoError(t, server.Notify(context.Background(), message.TypeTranslationStarted, message.TranslationStarted{RequestID: uint64(i)}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifications not delivered")
	}
	for i, id := range seen {
		assert.Equal(t, uint64(i+1), id)
	}
}

func TestConnPendingFailsOnClose(t *testing.T) {
	block := make(chan struct{})
	r := message.NewRouter()
	require.NoError(t, r.HandleFunc(message.TypeGetSelection, func(ctx context.Context, payload json.RawMessage) (any, error) {
		<-block
		return message.Selection{}, nil
	}))
	server, client := startPair(t, r, nil)
	defer close(block)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Request(context.Background(), message.TypeGetSelection, nil)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, server.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, message.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("pending request did not fail")
	}

	_, err := client.Request(context.Background(), message.TypeGetSelection, nil)
	assert.ErrorIs(t, err, message.ErrClosed)
}

func TestConnRequestHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := message.NewRouter()
	require.NoError(t, r.HandleFunc(message.TypeGetSelection, func(ctx context.Context, payload json.RawMessage) (any, error) {
		<-block
		return nil, nil
	}))
	_, client := startPair(t, r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := client.Request(ctx, message.TypeGetSelection, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebsocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		router := message.NewRouter()
		_ = router.HandleFunc(message.TypeTranslateText, func(ctx context.Context, payload json.RawMessage) (any, error) {
			return translate.Success("Hello"), nil
		})
		_ = message.NewConn(message.NewWSTransport(ws), router).Run(r.Context())
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	client := message.NewConn(message.NewWSTransport(ws), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	reply, err := client.Request(ctx, message.TypeTranslateText, message.TranslateText{Text: "你好"})
	require.NoError(t, err)
	var res translate.Result
	require.NoError(t, reply.Decode(&res))
	assert.Equal(t, "Hello", res.TranslatedText)

	require.NoError(t, client.Close())
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not shut down")
	}
}
