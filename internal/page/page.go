// Package page is the page-level UI controller. It owns one document's
// sidebar and geometry, answers the dispatcher's messages, and sends
// translation requests on the user's behalf.
package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/ewriter/internal/geometry"
	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/message"
	"github.com/ziadkadry99/ewriter/internal/panel"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

// ErrContextInvalidated means the dispatcher can no longer be reached.
var ErrContextInvalidated = errors.New("extension connection lost, please refresh")

const (
	ShortcutUnassigned = "Shortcut: N/A"
	ShortcutFailed     = "Shortcut: Error"
)

// Page ties a document's panel and geometry to a dispatcher connection.
type Page struct {
	doc      panel.Document
	panel    *panel.Controller
	geometry *geometry.Controller

	mu        sync.Mutex
	conn      *message.Conn
	enabled   bool
	selection string

	changes chan struct{}
}

// New creates a page controller. Nothing is shown until the dispatcher
// reports the feature as enabled.
func New(doc panel.Document, pnl *panel.Controller, geo *geometry.Controller) *Page {
	p := &Page{
		doc:      doc,
		panel:    pnl,
		geometry: geo,
		changes:  make(chan struct{}, 1),
	}
	pnl.OnChange(p.touch)
	geo.OnChange(func(g geometry.Geometry) {
		pnl.SetFontMultiplier(g.FontSizeMultiplier)
		p.touch()
	})
	return p
}

// Panel returns the sidebar content controller.
func (p *Page) Panel() *panel.Controller { return p.panel }

// Geometry returns the sidebar geometry controller.
func (p *Page) Geometry() *geometry.Controller { return p.geometry }

// Changes delivers a value whenever something visible changed. Bursts are
// coalesced.
func (p *Page) Changes() <-chan struct{} { return p.changes }

func (p *Page) touch() {
	select {
	case p.changes <- struct{}{}:
	default:
	}
}

// Enabled reports whether the dispatcher last said the feature is on.
func (p *Page) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetSelection records the document's current selection.
func (p *Page) SetSelection(text string) {
	p.mu.Lock()
	p.selection = text
	p.mu.Unlock()
}

// Selection returns the document's current selection.
func (p *Page) Selection() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selection
}

// DialURL builds the dispatcher websocket address for this document.
func DialURL(dispatcher string, doc panel.Document) (string, error) {
	u, err := url.Parse(dispatcher)
	if err != nil {
		return "", fmt.Errorf("parsing dispatcher url: %w", err)
	}
	q := u.Query()
	q.Set("url", doc.URL)
	if doc.TopLevel {
		q.Set("frame", "top")
	} else {
		q.Set("frame", "nested")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the dispatcher and serves the connection until it closes
// or ctx is cancelled.
func (p *Page) Connect(ctx context.Context, dispatcher string) error {
	addr, err := DialURL(dispatcher, p.doc)
	if err != nil {
		return err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("connecting to dispatcher %s: %w", dispatcher, err)
	}
	return p.Serve(ctx, message.NewWSTransport(ws))
}

// Serve runs the page side of a dispatcher connection over t.
func (p *Page) Serve(ctx context.Context, t message.Transport) error {
	ctx = logging.WithComponent(ctx, "page")
	conn := message.NewConn(t, p.Router())

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		p.mu.Unlock()
	}()

	err := conn.Run(ctx)
	if message.IsNormalClose(err) || errors.Is(err, message.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Page) connection() *message.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

// Router returns the handlers for messages the dispatcher sends.
func (p *Page) Router() *message.Router {
	r := message.NewRouter()
	_ = r.HandleFunc(message.TypeToggleEnabled, p.handleToggle)
	_ = r.HandleFunc(message.TypeTranslationStarted, p.handleStarted)
	_ = r.HandleFunc(message.TypeDisplayTranslation, p.handleDisplay)
	_ = r.HandleFunc(message.TypeGetSelection, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return message.Selection{Text: p.Selection()}, nil
	})
	return r
}

func decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, dst)
}

func (p *Page) handleToggle(ctx context.Context, payload json.RawMessage) (any, error) {
	var m message.ToggleEnabled
	if err := decode(payload, &m); err != nil {
		return nil, fmt.Errorf("decoding toggle: %w", err)
	}

	p.mu.Lock()
	p.enabled = m.Enabled
	p.mu.Unlock()

	if !m.Enabled {
		p.panel.Destroy()
		p.touch()
		return nil, nil
	}
	p.Init(ctx)
	return nil, nil
}

func (p *Page) handleStarted(ctx context.Context, payload json.RawMessage) (any, error) {
	var m message.TranslationStarted
	if err := decode(payload, &m); err != nil {
		return nil, fmt.Errorf("decoding translation start: %w", err)
	}
	if _, err := p.panel.ShowLoading(m.RequestID); err != nil {
		return nil, p.ignoreNested(ctx, err)
	}
	p.geometry.Expand(ctx)
	return nil, nil
}

func (p *Page) handleDisplay(ctx context.Context, payload json.RawMessage) (any, error) {
	var m message.DisplayTranslation
	if err := decode(payload, &m); err != nil {
		return nil, fmt.Errorf("decoding translation: %w", err)
	}
	applied, err := p.panel.ShowResult(m.RequestID, m.Result)
	if err != nil {
		return nil, p.ignoreNested(ctx, err)
	}
	if !applied {
		logging.FromContext(ctx).Debug().Uint64("request_id", m.RequestID).Msg("discarded stale translation")
		return nil, nil
	}
	p.geometry.Expand(ctx)
	return nil, nil
}

func (p *Page) ignoreNested(ctx context.Context, err error) error {
	if errors.Is(err, panel.ErrNestedFrame) {
		logging.FromContext(ctx).Debug().Msg("nested frame has no sidebar")
		return nil
	}
	return err
}

// Init builds the sidebar, restores persisted geometry and asks the
// dispatcher for the shortcut label.
func (p *Page) Init(ctx context.Context) {
	log := logging.FromContext(ctx)
	if err := p.panel.Ensure(); err != nil {
		log.Debug().Err(err).Msg("no sidebar for this document")
		return
	}

	g := p.geometry.Load(ctx)
	p.panel.SetFontMultiplier(g.FontSizeMultiplier)
	p.panel.SetShortcut(p.shortcutLabel(ctx))
	p.touch()
}

func (p *Page) shortcutLabel(ctx context.Context) string {
	conn := p.connection()
	if conn == nil {
		logging.FromContext(ctx).Warn().Err(ErrContextInvalidated).Msg("cannot request shortcut info")
		return ShortcutFailed
	}
	reply, err := conn.Request(ctx, message.TypeGetShortcutInfo, nil)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("getting shortcut info")
		return ShortcutFailed
	}
	var info message.ShortcutInfo
	if err := reply.Decode(&info); err != nil {
		logging.FromContext(ctx).Error().Err(err).Msg("decoding shortcut info")
		return ShortcutFailed
	}
	if strings.TrimSpace(info.Shortcut) == "" {
		return ShortcutUnassigned
	}
	return "Shortcut: " + info.Shortcut
}

// TriggerTranslation asks the dispatcher to translate text and renders the
// outcome. Empty text, or a disabled page, resets the sidebar instead.
func (p *Page) TriggerTranslation(ctx context.Context, text string) (translate.Result, error) {
	if !p.Enabled() || strings.TrimSpace(text) == "" {
		p.panel.Reset()
		return translate.Success(""), nil
	}
	if _, err := p.panel.ShowLoading(0); err != nil {
		return translate.Result{}, err
	}

	conn := p.connection()
	if conn == nil {
		return p.lost(ctx, nil)
	}

	reply, err := conn.Request(ctx, message.TypeTranslateText, message.TranslateText{Text: text})
	if err != nil {
		var remote *message.RemoteError
		if errors.Is(err, message.ErrClosed) {
			return p.lost(ctx, err)
		}
		if errors.As(err, &remote) {
			_ = p.panel.ShowError(remote.Message)
			return translate.Failure(remote.Message), nil
		}
		_ = p.panel.ShowError(err.Error())
		return translate.Result{}, err
	}

	var res translate.Result
	if err := reply.Decode(&res); err != nil {
		res = translate.Failure(err.Error())
	}
	if _, err := p.panel.ShowResult(0, res); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Page) lost(ctx context.Context, cause error) (translate.Result, error) {
	logging.FromContext(ctx).Warn().Err(cause).Msg("dispatcher connection lost")
	_ = p.panel.ShowError(ErrContextInvalidated.Error())
	return translate.Failure(ErrContextInvalidated.Error()), ErrContextInvalidated
}

// Copy copies the shown translation to the clipboard.
func (p *Page) Copy(ctx context.Context) bool {
	copied, err := p.panel.Copy()
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("copy to clipboard failed")
	}
	return copied
}
