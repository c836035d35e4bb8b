package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/message"
	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls []translate.Request
}

func (f *fakeTranslator) Translate(ctx context.Context, req translate.Request) translate.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return translate.Success("EN:" + req.Text)
}

func (f *fakeTranslator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSettings struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeSettings) Load(ctx context.Context) (settings.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := settings.Defaults()
	st.IsEnabled = f.enabled
	return st, nil
}

func (f *fakeSettings) ToggleEnabled(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = !f.enabled
	return f.enabled, nil
}

// fakePage records what the hub sends and answers GET_SELECTION.
type fakePage struct {
	conn *message.Conn

	mu        sync.Mutex
	selection string
	received  []message.Envelope
	notify    chan message.Type
}

func (p *fakePage) record(t message.Type) message.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		p.mu.Lock()
		p.received = append(p.received, message.Envelope{Type: t, Payload: payload})
		p.mu.Unlock()
		p.notify <- t
		return nil, nil
	}
}

func (p *fakePage) wait(t *testing.T, want message.Type) message.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-p.notify:
			if got != want {
				continue
			}
			p.mu.Lock()
			defer p.mu.Unlock()
			for i := len(p.received) - 1; i >= 0; i-- {
				if p.received[i].Type == want {
					return p.received[i]
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func setupHub(t *testing.T) (*Hub, *httptest.Server, *fakeTranslator, *fakeSettings) {
	t.Helper()
	tr := &fakeTranslator{}
	st := &fakeSettings{enabled: true}
	h := New(tr, st, "Ctrl+Shift+E")

	r := chi.NewRouter()
	RegisterWebsocket(r, h)
	RegisterRoutes(r, h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(h.Close)
	return h, srv, tr, st
}

func connectPage(t *testing.T, srv *httptest.Server, frame string) *fakePage {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?url=https://example.com&frame=" + frame
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	p := &fakePage{notify: make(chan message.Type, 32)}
	r := message.NewRouter()
	for _, typ := range []message.Type{message.TypeToggleEnabled, message.TypeTranslationStarted, message.TypeDisplayTranslation} {
		require.NoError(t, r.Handle(typ, p.record(typ)))
	}
	require.NoError(t, r.HandleFunc(message.TypeGetSelection, func(ctx context.Context, payload json.RawMessage) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return message.Selection{Text: p.selection}, nil
	}))

	p.conn = message.NewConn(message.NewWSTransport(ws), r)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.conn.Run(ctx)
	return p
}

func waitForTabs(t *testing.T, h *Hub, n int) []Tab {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tabs := h.Tabs(); len(tabs) == n {
			return tabs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d tabs, have %d", n, len(h.Tabs()))
	return nil
}

func TestConnectSendsEnabledState(t *testing.T) {
	h, srv, _, _ := setupHub(t)
	page := connectPage(t, srv, "top")

	env := page.wait(t, message.TypeToggleEnabled)
	var p message.ToggleEnabled
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.True(t, p.Enabled)

	tabs := waitForTabs(t, h, 1)
	assert.Equal(t, "https://example.com", tabs[0].URL)
	assert.True(t, tabs[0].TopLevel)
}

func TestNestedFrameRefused(t *testing.T) {
	h, srv, _, _ := setupHub(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?frame=nested"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Empty(t, h.Tabs())
}

func TestPageRequestsAreAnswered(t *testing.T) {
	_, srv, tr, _ := setupHub(t)
	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := page.conn.Request(ctx, message.TypeGetShortcutInfo, nil)
	require.NoError(t, err)
	var info message.ShortcutInfo
	require.NoError(t, reply.Decode(&info))
	assert.Equal(t, "Ctrl+Shift+E", info.Shortcut)

	reply, err = page.conn.Request(ctx, message.TypeTranslateText, message.TranslateText{Text: "你好", Style: "casual"})
	require.NoError(t, err)
	var res translate.Result
	require.NoError(t, reply.Decode(&res))
	assert.Equal(t, "EN:你好", res.TranslatedText)
	require.Equal(t, 1, tr.count())
	require.NotNil(t, tr.calls[0].Style)
	assert.Equal(t, settings.StyleCasual, *tr.calls[0].Style)
}

func TestTranslateSelection(t *testing.T) {
	h, srv, tr, _ := setupHub(t)
	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)
	tabs := waitForTabs(t, h, 1)

	page.mu.Lock()
	page.selection = "  早安  "
	page.mu.Unlock()

	res, err := h.TranslateSelection(context.Background(), tabs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "EN:早安", res.TranslatedText)

	started := page.wait(t, message.TypeTranslationStarted)
	var s message.TranslationStarted
	require.NoError(t, json.Unmarshal(started.Payload, &s))

	display := page.wait(t, message.TypeDisplayTranslation)
	var d message.DisplayTranslation
	require.NoError(t, json.Unmarshal(display.Payload, &d))
	assert.Equal(t, s.RequestID, d.RequestID)
	assert.Equal(t, "EN:早安", d.Result.TranslatedText)
	assert.Equal(t, 1, tr.count())
}

func TestTranslateEmptySelectionSkipsProvider(t *testing.T) {
	h, srv, tr, _ := setupHub(t)
	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)
	tabs := waitForTabs(t, h, 1)

	res, err := h.TranslateSelection(context.Background(), tabs[0].ID)
	require.NoError(t, err)
	assert.False(t, res.IsSuccess())
	assert.Equal(t, "No text selected", res.Error)
	assert.Equal(t, 0, tr.count())

	display := page.wait(t, message.TypeDisplayTranslation)
	var d message.DisplayTranslation
	require.NoError(t, json.Unmarshal(display.Payload, &d))
	assert.Equal(t, "No text selected", d.Result.Error)
}

func TestToggleEnabled(t *testing.T) {
	h, srv, _, st := setupHub(t)
	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)
	tabs := waitForTabs(t, h, 1)

	enabled, err := h.ToggleEnabled(context.Background(), tabs[0].ID)
	require.NoError(t, err)
	assert.False(t, enabled)

	env := page.wait(t, message.TypeToggleEnabled)
	var p message.ToggleEnabled
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.False(t, p.Enabled)

	loaded, _ := st.Load(context.Background())
	assert.False(t, loaded.IsEnabled)
}

func TestUnknownTab(t *testing.T) {
	h, _, _, _ := setupHub(t)
	_, err := h.TranslateSelection(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownTab)
	_, err = h.ToggleEnabled(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestRoutes(t *testing.T) {
	h, srv, _, _ := setupHub(t)
	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)
	tabs := waitForTabs(t, h, 1)

	resp, err := http.Get(srv.URL + "/api/tabs/")
	require.NoError(t, err)
	var listed []Tab
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed, 1)
	assert.Equal(t, tabs[0].ID, listed[0].ID)

	resp, err = http.Post(srv.URL+"/api/tabs/nope/toggle", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/tabs/"+tabs[0].ID+"/toggle", "application/json", nil)
	require.NoError(t, err)
	var toggled map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&toggled))
	resp.Body.Close()
	assert.False(t, toggled["enabled"])

	body, _ := json.Marshal(map[string]string{"text": "謝謝", "style": "formal"})
	resp, err = http.Post(srv.URL+"/api/translate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var res translate.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	resp.Body.Close()
	assert.Equal(t, "EN:謝謝", res.TranslatedText)

	body, _ = json.Marshal(map[string]string{"text": "x", "style": "poetic"})
	resp, err = http.Post(srv.URL+"/api/translate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

type loggingTranslator struct{ fakeTranslator }

func (l *loggingTranslator) Translate(ctx context.Context, req translate.Request) translate.Result {
	logging.FromContext(ctx).Info().Msg("translating")
	return l.fakeTranslator.Translate(ctx, req)
}

func TestPageTranslationLogsCarryTabID(t *testing.T) {
	var out syncBuffer
	logger := logging.New(logging.Config{Level: zerolog.InfoLevel, Format: "json", Out: &out})

	h := New(&loggingTranslator{}, &fakeSettings{enabled: true}, "Ctrl+Shift+E")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(logging.WithContext(req.Context(), logger)))
		})
	})
	RegisterWebsocket(r, h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(h.Close)

	page := connectPage(t, srv, "top")
	page.wait(t, message.TypeToggleEnabled)
	tabs := waitForTabs(t, h, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := page.conn.Request(ctx, message.TypeTranslateText, message.TranslateText{Text: "你好"})
	require.NoError(t, err)

	var found bool
	for _, line := range out.lines(t) {
		if line["message"] == "translating" {
			found = true
			assert.Equal(t, tabs[0].ID, line["tab_id"])
		}
	}
	assert.True(t, found, "translator did not log")
}
