// Package panel owns the sidebar's content: what it says, whether the copy
// action is offered, and the transient feedback after copying.
package panel

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/ziadkadry99/ewriter/internal/translate"
)

// ErrNestedFrame is returned when a sidebar is requested inside a nested frame.
var ErrNestedFrame = errors.New("panel: only the top-level document hosts a sidebar")

// State is what the sidebar is currently showing.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Display strings.
const (
	Title           = "English writer"
	IdleText        = "..."
	LoadingText     = "Translating..."
	NoResultText    = "No translation result"
	CopyLabel       = "Copy translation"
	CopiedLabel     = "Copied!"
	ShortcutPending = "Shortcut: ..."

	BaseFontSize     = 14.0
	ShortcutFontSize = 12.0

	CopyFeedbackDuration = 1500 * time.Millisecond
)

// Document is the page a controller renders into.
type Document struct {
	URL      string
	TopLevel bool
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// View is a snapshot of the sidebar for rendering.
type View struct {
	State            State
	Text             string
	CopyVisible      bool
	CopyLabel        string
	Shortcut         string
	FontSize         float64
	ShortcutFontSize float64
}

type sidebar struct {
	state     State
	text      string
	copyLabel string
	shortcut  string
}

// Controller manages the single sidebar of a document. It is safe for
// concurrent use.
type Controller struct {
	doc   Document
	clip  Clipboard
	after AfterFunc

	mu         sync.Mutex
	sb         *sidebar
	builds     int
	latestID   uint64
	multiplier float64
	copyTimer  Timer
	onChange   func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithClipboard overrides the clipboard.
func WithClipboard(c Clipboard) Option {
	return func(p *Controller) { p.clip = c }
}

// WithAfterFunc overrides the timer used for copy feedback.
func WithAfterFunc(f AfterFunc) Option {
	return func(p *Controller) { p.after = f }
}

// NewController creates a controller for doc. The sidebar itself is built
// lazily by Ensure.
func NewController(doc Document, opts ...Option) *Controller {
	c := &Controller{
		doc:        doc,
		clip:       SystemClipboard{},
		after:      systemAfterFunc,
		multiplier: 1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers a callback run, with the lock released, after every
// visible change.
func (c *Controller) OnChange(f func()) {
	c.mu.Lock()
	c.onChange = f
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	f := c.onChange
	c.mu.Unlock()
	if f != nil {
		f()
	}
}

// Ensure builds the sidebar if it does not exist yet.
func (c *Controller) Ensure() error {
	c.mu.Lock()
	created, err := c.ensure()
	c.mu.Unlock()
	if created {
		c.changed()
	}
	return err
}

func (c *Controller) ensure() (bool, error) {
	if !c.doc.TopLevel {
		return false, ErrNestedFrame
	}
	if c.sb != nil {
		return false, nil
	}
	c.sb = &sidebar{
		state:     StateIdle,
		text:      IdleText,
		copyLabel: CopyLabel,
		shortcut:  ShortcutPending,
	}
	c.builds++
	return true, nil
}

// Exists reports whether the sidebar has been built.
func (c *Controller) Exists() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sb != nil
}

// Destroy removes the sidebar. A later Ensure builds a fresh one.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.sb == nil {
		c.mu.Unlock()
		return
	}
	c.sb = nil
	if c.copyTimer != nil {
		c.copyTimer.Stop()
		c.copyTimer = nil
	}
	c.mu.Unlock()
	c.changed()
}

// stale reports whether id belongs to a request older than the newest one
// seen. Untagged updates (id 0) are never stale.
func (c *Controller) stale(id uint64) bool {
	if id == 0 {
		return false
	}
	if id < c.latestID {
		return true
	}
	c.latestID = id
	return false
}

// ShowLoading switches to the loading state. It reports false when id is stale.
func (c *Controller) ShowLoading(id uint64) (bool, error) {
	c.mu.Lock()
	if _, err := c.ensure(); err != nil {
		c.mu.Unlock()
		return false, err
	}
	if c.stale(id) {
		c.mu.Unlock()
		return false, nil
	}
	c.sb.state = StateLoading
	c.sb.text = LoadingText
	c.mu.Unlock()
	c.changed()
	return true, nil
}

// ShowResult renders a translation outcome. It reports false when id is stale.
func (c *Controller) ShowResult(id uint64, res translate.Result) (bool, error) {
	c.mu.Lock()
	if _, err := c.ensure(); err != nil {
		c.mu.Unlock()
		return false, err
	}
	if c.stale(id) {
		c.mu.Unlock()
		return false, nil
	}
	switch {
	case !res.IsSuccess():
		c.sb.state = StateError
		c.sb.text = res.Error
	case strings.TrimSpace(res.TranslatedText) == "":
		c.sb.state = StateError
		c.sb.text = NoResultText
	default:
		c.sb.state = StateResult
		c.sb.text = res.TranslatedText
	}
	c.mu.Unlock()
	c.changed()
	return true, nil
}

// ShowError renders msg as an error.
func (c *Controller) ShowError(msg string) error {
	c.mu.Lock()
	if _, err := c.ensure(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.sb.state = StateError
	c.sb.text = msg
	c.mu.Unlock()
	c.changed()
	return nil
}

// Reset returns the sidebar to its idle placeholder.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.sb == nil {
		c.mu.Unlock()
		return
	}
	c.sb.state = StateIdle
	c.sb.text = IdleText
	c.mu.Unlock()
	c.changed()
}

func isSentinel(text string) bool {
	switch text {
	case "", IdleText, LoadingText, NoResultText:
		return true
	}
	return false
}

// Copy writes the displayed translation to the clipboard. It reports false
// without copying unless a translation is shown.
func (c *Controller) Copy() (bool, error) {
	c.mu.Lock()
	if c.sb == nil || c.sb.state != StateResult || isSentinel(c.sb.text) {
		c.mu.Unlock()
		return false, nil
	}
	text := c.sb.text
	c.mu.Unlock()

	if err := c.clip.WriteText(text); err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.sb == nil {
		c.mu.Unlock()
		return true, nil
	}
	c.sb.copyLabel = CopiedLabel
	if c.copyTimer != nil {
		c.copyTimer.Stop()
	}
	sb := c.sb
	c.copyTimer = c.after(CopyFeedbackDuration, func() {
		c.mu.Lock()
		if c.sb == sb {
			sb.copyLabel = CopyLabel
		}
		c.mu.Unlock()
		c.changed()
	})
	c.mu.Unlock()
	c.changed()
	return true, nil
}

// SetShortcut sets the shortcut line shown under the header.
func (c *Controller) SetShortcut(label string) {
	c.mu.Lock()
	if c.sb == nil {
		c.mu.Unlock()
		return
	}
	c.sb.shortcut = label
	c.mu.Unlock()
	c.changed()
}

// SetFontMultiplier scales the content and shortcut fonts.
func (c *Controller) SetFontMultiplier(m float64) {
	c.mu.Lock()
	c.multiplier = m
	c.mu.Unlock()
	c.changed()
}

// FontSizePx is the content font size.
func (c *Controller) FontSizePx() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BaseFontSize * c.multiplier
}

// View returns a snapshot of the sidebar, or false when none exists.
func (c *Controller) View() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sb == nil {
		return View{}, false
	}
	return View{
		State:            c.sb.state,
		Text:             c.sb.text,
		CopyVisible:      c.sb.state == StateResult,
		CopyLabel:        c.sb.copyLabel,
		Shortcut:         c.sb.shortcut,
		FontSize:         BaseFontSize * c.multiplier,
		ShortcutFontSize: ShortcutFontSize * c.multiplier,
	}, true
}
