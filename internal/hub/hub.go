// Package hub is the privileged side of the extension: it keeps one message
// connection per open page, answers their requests and pushes commands to them.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/message"
	"github.com/ziadkadry99/ewriter/internal/settings"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// ErrUnknownTab is returned for commands addressed to a tab that is not connected.
var ErrUnknownTab = errors.New("unknown tab")

// Translator performs translations.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) translate.Result
}

// SettingsStore is the part of the settings store the hub needs.
type SettingsStore interface {
	Load(ctx context.Context) (settings.Settings, error)
	ToggleEnabled(ctx context.Context) (bool, error)
}

// Tab describes a connected page.
type Tab struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	TopLevel    bool      `json:"top_level"`
	ConnectedAt time.Time `json:"connected_at"`
}

type tab struct {
	Tab
	conn *message.Conn
}

// Hub tracks connected pages.
type Hub struct {
	translator Translator
	settings   SettingsStore
	shortcut   string
	upgrader   websocket.Upgrader

	mu   sync.RWMutex
	tabs map[string]*tab

	requestSeq atomic.Uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithCheckOrigin overrides the websocket origin check.
func WithCheckOrigin(f func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = f }
}

// New creates a Hub. shortcut is the label reported to pages; empty means none.
func New(translator Translator, store SettingsStore, shortcut string, opts ...Option) *Hub {
	h := &Hub{
		translator: translator,
		settings:   store,
		shortcut:   shortcut,
		tabs:       make(map[string]*tab),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS upgrades a page connection and serves it until it closes. Nested
// frames are refused: only the top-level document owns a panel.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if r.URL.Query().Get("frame") == "nested" {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "nested frames do not host a panel"),
			time.Now().Add(time.Second))
		_ = ws.Close()
		log.Debug().Str("url", r.URL.Query().Get("url")).Msg("refused nested frame")
		return
	}

	t := &tab{Tab: Tab{
		ID:          uuid.NewString(),
		URL:         r.URL.Query().Get("url"),
		TopLevel:    true,
		ConnectedAt: time.Now().UTC(),
	}}
	t.conn = message.NewConn(message.NewWSTransport(ws), h.router())

	ctx := logging.WithTabID(r.Context(), t.ID)
	log = logging.FromContext(ctx)

	h.mu.Lock()
	h.tabs[t.ID] = t
	h.mu.Unlock()
	log.Info().Str("url", t.URL).Msg("tab connected")

	defer func() {
		h.mu.Lock()
		delete(h.tabs, t.ID)
		h.mu.Unlock()
		log.Info().Msg("tab disconnected")
	}()

	h.restoreEnabled(ctx, t)

	if err := t.conn.Run(ctx); !message.IsNormalClose(err) {
		log.Debug().Err(err).Msg("tab connection ended")
	}
}

// restoreEnabled tells a freshly connected page whether the feature is on.
func (h *Hub) restoreEnabled(ctx context.Context, t *tab) {
	enabled := true
	st, err := h.settings.Load(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("could not read enabled flag, assuming enabled")
	} else {
		enabled = st.IsEnabled
	}
	if err := t.conn.Notify(ctx, message.TypeToggleEnabled, message.ToggleEnabled{Enabled: enabled}); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("could not send initial enabled state")
	}
}

// router answers page requests. Handlers run with the connection context,
// so their logs carry the tab_id.
func (h *Hub) router() *message.Router {
	r := message.NewRouter()
	_ = r.HandleFunc(message.TypeTranslateText, func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req message.TranslateText
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, fmt.Errorf("invalid TRANSLATE_TEXT payload: %w", err)
			}
		}
		return h.translator.Translate(ctx, toRequest(req)), nil
	})
	_ = r.HandleFunc(message.TypeGetShortcutInfo, func(ctx context.Context, payload json.RawMessage) (any, error) {
		return message.ShortcutInfo{Shortcut: h.shortcut}, nil
	})
	return r
}

func toRequest(m message.TranslateText) translate.Request {
	req := translate.Request{Text: m.Text}
	if s, err := settings.ParseStyle(m.Style); err == nil {
		req.Style = &s
	}
	return req
}

// Tabs lists connected pages, oldest first.
func (h *Hub) Tabs() []Tab {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Tab, 0, len(h.tabs))
	for _, t := range h.tabs {
		out = append(out, t.Tab)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

func (h *Hub) lookup(id string) (*tab, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	return t, nil
}

// notify sends a one-way message. Failures are logged and swallowed since
// the page may have gone away.
func (h *Hub) notify(ctx context.Context, t *tab, typ message.Type, payload any) {
	if err := t.conn.Notify(ctx, typ, payload); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("type", string(typ)).Msg("could not deliver message to tab")
	}
}

// TranslateSelection translates the current selection of a tab and shows
// the outcome in its panel. The returned Result is what the panel was sent.
func (h *Hub) TranslateSelection(ctx context.Context, tabID string) (translate.Result, error) {
	t, err := h.lookup(tabID)
	if err != nil {
		return translate.Result{}, err
	}
	ctx = logging.WithTabID(ctx, tabID)

	id := h.requestSeq.Add(1)
	h.notify(ctx, t, message.TypeTranslationStarted, message.TranslationStarted{RequestID: id})

	var sel message.Selection
	reply, err := t.conn.Request(ctx, message.TypeGetSelection, nil)
	if err == nil {
		err = reply.Decode(&sel)
	}
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("could not read selection")
		if errors.Is(err, message.ErrClosed) {
			return translate.Result{}, fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
		}
	}

	var res translate.Result
	if text := strings.TrimSpace(sel.Text); text == "" {
		res = translate.Failure("No text selected")
	} else {
		res = h.translator.Translate(ctx, translate.Request{Text: text})
	}

	h.notify(ctx, t, message.TypeDisplayTranslation, message.DisplayTranslation{RequestID: id, Result: res})
	return res, nil
}

// ToggleEnabled flips the stored enabled flag and tells the tab.
func (h *Hub) ToggleEnabled(ctx context.Context, tabID string) (bool, error) {
	t, err := h.lookup(tabID)
	if err != nil {
		return false, err
	}
	enabled, err := h.settings.ToggleEnabled(ctx)
	if err != nil {
		return false, err
	}
	h.notify(logging.WithTabID(ctx, tabID), t, message.TypeToggleEnabled, message.ToggleEnabled{Enabled: enabled})
	return enabled, nil
}

// Close disconnects every tab.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, t := range h.tabs {
		_ = t.conn.Close()
	}
}
