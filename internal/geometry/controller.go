package geometry

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	"github.com/ziadkadry99/ewriter/internal/kvstore"
	"github.com/ziadkadry99/ewriter/internal/logging"
)

// ErrCollapsed is returned when a gesture starts on a collapsed panel.
var ErrCollapsed = errors.New("panel is collapsed")

// Store is the device-local key/value area the controller persists to.
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDrag
	gestureResize
)

type gesture struct {
	kind      gestureKind
	edge      Edge
	startX    float64
	startY    float64
	initRect  Rect
	maxHeight float64
}

// Controller is the geometry state machine for one panel. It is safe for
// concurrent use.
type Controller struct {
	store Store

	mu       sync.Mutex
	g        Geometry
	height   float64 // requested height, g.Height is this clamped to the viewport
	vw, vh   float64
	gesture  gesture
	onChange func(Geometry)
}

// NewController creates a controller with default geometry for a viewport
// of vw x vh px. Call Load to restore persisted values.
func NewController(store Store, vw, vh float64) *Controller {
	c := &Controller{store: store, g: Default(), vw: vw, vh: vh}
	c.height = c.g.Height
	c.keepInViewport()
	return c
}

// Geometry returns a copy of the current geometry.
func (c *Controller) Geometry() Geometry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.g
}

// Rect returns the expanded panel rectangle in px.
func (c *Controller) Rect() Rect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rect()
}

func (c *Controller) rect() Rect {
	return Rect{X: c.left(), Y: c.g.Top.Resolve(c.vh), W: c.g.Width, H: c.g.Height}
}

func (c *Controller) left() float64 {
	if c.g.Left == nil {
		return c.vw - c.g.Width
	}
	return *c.g.Left
}

func (c *Controller) docked() Point {
	return Point{X: c.vw - c.g.Width, Y: Percent(DefaultTopPercent).Resolve(c.vh)}
}

// Load restores persisted geometry. Out-of-range values fall back to their
// defaults; a store failure is logged and leaves the defaults in place.
func (c *Controller) Load(ctx context.Context) Geometry {
	values, err := c.store.Get(ctx, allKeys...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.g = Default()
	c.height = c.g.Height
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("could not load sidebar geometry, using defaults")
		c.keepInViewport()
		return c.g
	}

	var collapsed bool
	if kvstore.Decode(values, KeyCollapsed, &collapsed) && !collapsed {
		c.g.Collapsed = false
	}

	if w, ok := decodePx(values, KeyWidth); ok && w >= MinWidth && w <= MaxWidth {
		c.g.Width = w
	}
	if h, ok := decodePx(values, KeyHeight); ok && h >= MinHeight && h <= MaxHeight(c.vh) {
		c.g.Height = h
		c.height = h
	}

	var m float64
	if kvstore.Decode(values, KeyFontMultiplier, &m) && m >= MinFontMultiplier && m <= MaxFontMultiplier {
		c.g.FontSizeMultiplier = m
	}

	if !c.g.Collapsed {
		if l, ok := decodePx(values, KeyLeft); ok {
			c.g.Left = ptr(l)
		}
		if t, ok := decodeLength(values, KeyTop); ok {
			c.g.Top = t
		}
	}

	ldl, okL := decodePx(values, KeyLastDraggedLeft)
	ldt, okT := decodePx(values, KeyLastDraggedTop)
	if okL && okT {
		c.g.LastDraggedLeft = ptr(ldl)
		c.g.LastDraggedTop = ptr(ldt)
	}

	c.keepInViewport()
	return c.g
}

// decodeLength reads a stored CSS length. "auto" and malformed values are ignored.
func decodeLength(values map[string]json.RawMessage, key string) (Length, bool) {
	var s string
	if !kvstore.Decode(values, key, &s) {
		var n float64
		if !kvstore.Decode(values, key, &n) {
			return Length{}, false
		}
		return Px(n), true
	}
	if s == "" || s == "auto" {
		return Length{}, false
	}
	l, err := ParseLength(s)
	if err != nil {
		return Length{}, false
	}
	return l, true
}

func decodePx(values map[string]json.RawMessage, key string) (float64, bool) {
	l, ok := decodeLength(values, key)
	if !ok || l.Unit != UnitPx {
		return 0, false
	}
	return l.Value, true
}

// OnChange registers a callback run, with the lock released, after every
// state change.
func (c *Controller) OnChange(f func(Geometry)) {
	c.mu.Lock()
	c.onChange = f
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	f, g := c.onChange, c.g
	c.mu.Unlock()
	if f != nil {
		f(g)
	}
}

func (c *Controller) persist(ctx context.Context, values map[string]any) {
	if err := c.store.Set(ctx, values); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("could not save sidebar geometry")
	}
}

func (c *Controller) forget(ctx context.Context, keys ...string) {
	if err := c.store.Remove(ctx, keys...); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("could not clear sidebar geometry")
	}
}

// Toggle collapses an expanded panel or expands a collapsed one. The final
// state is applied before Toggle returns; the Transition only describes
// the return-to-edge animation of a collapse.
func (c *Controller) Toggle(ctx context.Context) Transition {
	c.mu.Lock()
	if c.g.Collapsed {
		c.expand()
		c.mu.Unlock()
		c.persist(ctx, map[string]any{KeyCollapsed: false})
		c.changed()
		return Transition{}
	}

	from := Point{X: c.left(), Y: c.g.Top.Resolve(c.vh)}
	to := c.docked()
	moved := math.Abs(from.X-to.X) > SnapThreshold || math.Abs(from.Y-to.Y) > SnapThreshold

	c.g.Collapsed = true
	c.g.Left = nil
	c.g.Top = Percent(DefaultTopPercent)
	if moved {
		c.g.LastDraggedLeft = ptr(from.X)
		c.g.LastDraggedTop = ptr(from.Y)
	} else {
		c.g.LastDraggedLeft = nil
		c.g.LastDraggedTop = nil
	}
	c.gesture = gesture{}
	c.mu.Unlock()

	if moved {
		c.persist(ctx, map[string]any{
			KeyCollapsed:       true,
			KeyLastDraggedLeft: Px(from.X).String(),
			KeyLastDraggedTop:  Px(from.Y).String(),
		})
	} else {
		c.persist(ctx, map[string]any{KeyCollapsed: true})
		c.forget(ctx, KeyLastDraggedLeft, KeyLastDraggedTop)
	}
	c.changed()

	if !moved {
		return Transition{}
	}
	return Transition{Frames: interpolate(from, to), Duration: CollapseDuration}
}

// Expand makes sure the panel is expanded. It reports whether anything changed.
func (c *Controller) Expand(ctx context.Context) bool {
	c.mu.Lock()
	if !c.g.Collapsed {
		c.mu.Unlock()
		return false
	}
	c.expand()
	c.mu.Unlock()

	c.persist(ctx, map[string]any{KeyCollapsed: false})
	c.changed()
	return true
}

// expand restores the last dragged position, or docks to the right edge.
func (c *Controller) expand() {
	c.g.Collapsed = false
	if c.g.LastDraggedLeft != nil && c.g.LastDraggedTop != nil {
		c.g.Left = ptr(*c.g.LastDraggedLeft)
		c.g.Top = Px(*c.g.LastDraggedTop)
	} else {
		c.g.Left = nil
		c.g.Top = Percent(DefaultTopPercent)
	}
	c.keepInViewport()
}

// interpolate returns linear frames from one point to another ending
// exactly on the target.
func interpolate(from, to Point) []Point {
	n := int(math.Ceil(float64(CollapseDuration) / float64(FrameInterval)))
	frames := make([]Point, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		frames[i-1] = Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}
	}
	frames[n-1] = to
	return frames
}

// BeginDrag starts moving the panel with the pointer at (x, y).
func (c *Controller) BeginDrag(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g.Collapsed {
		return ErrCollapsed
	}
	c.gesture = gesture{kind: gestureDrag, startX: x, startY: y, initRect: c.rect()}
	return nil
}

// DragTo moves the panel so the pointer keeps its offset from the press
// point. The panel never leaves the viewport.
func (c *Controller) DragTo(x, y float64) {
	c.mu.Lock()
	if c.gesture.kind != gestureDrag {
		c.mu.Unlock()
		return
	}
	r := c.gesture.initRect
	left := clamp(r.X+x-c.gesture.startX, 0, c.vw-r.W)
	top := clamp(r.Y+y-c.gesture.startY, 0, c.vh-r.H)
	c.g.Left = ptr(left)
	c.g.Top = Px(top)
	c.mu.Unlock()
	c.changed()
}

// EndDrag finishes a drag and persists the final position.
func (c *Controller) EndDrag(ctx context.Context) {
	c.mu.Lock()
	if c.gesture.kind != gestureDrag {
		c.mu.Unlock()
		return
	}
	c.gesture = gesture{}
	r := c.rect()
	c.mu.Unlock()

	c.persist(ctx, map[string]any{
		KeyTop:  Px(r.Y).String(),
		KeyLeft: Px(r.X).String(),
	})
}

// BeginResize starts resizing from edge with the pointer at (x, y). The
// height limit is taken from the viewport at this moment.
func (c *Controller) BeginResize(edge Edge, x, y float64) error {
	if !edge.Valid() {
		return errors.New("unknown resize edge " + string(edge))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g.Collapsed {
		return ErrCollapsed
	}
	c.gesture = gesture{
		kind:      gestureResize,
		edge:      edge,
		startX:    x,
		startY:    y,
		initRect:  c.rect(),
		maxHeight: MaxHeight(c.vh),
	}
	return nil
}

// ResizeTo resizes the panel for the pointer at (x, y). Resizing from the
// left or top keeps the opposite edge fixed.
func (c *Controller) ResizeTo(x, y float64) {
	c.mu.Lock()
	if c.gesture.kind != gestureResize {
		c.mu.Unlock()
		return
	}
	g := c.gesture
	r := g.initRect
	dx, dy := x-g.startX, y-g.startY

	switch g.edge {
	case EdgeLeft:
		right := r.X + r.W
		w := clamp(r.W-dx, MinWidth, MaxWidth)
		left := right - w
		if left < 0 {
			left = 0
			w = clamp(right, MinWidth, MaxWidth)
		}
		c.g.Width = w
		c.g.Left = ptr(left)
	case EdgeRight:
		c.g.Width = clamp(r.W+dx, MinWidth, MaxWidth)
		if c.g.Left == nil {
			c.g.Left = ptr(r.X)
		}
	case EdgeTop:
		bottom := r.Y + r.H
		h := clamp(r.H-dy, MinHeight, g.maxHeight)
		top := bottom - h
		if top < 0 {
			top = 0
			h = clamp(bottom, MinHeight, g.maxHeight)
		}
		c.g.Height = h
		c.height = h
		c.g.Top = Px(top)
	case EdgeBottom:
		c.g.Height = clamp(r.H+dy, MinHeight, g.maxHeight)
		c.height = c.g.Height
	}
	c.mu.Unlock()
	c.changed()
}

// EndResize finishes a resize and persists the size, plus the offset that
// moved for a left or top resize.
func (c *Controller) EndResize(ctx context.Context) {
	c.mu.Lock()
	if c.gesture.kind != gestureResize {
		c.mu.Unlock()
		return
	}
	edge := c.gesture.edge
	c.gesture = gesture{}
	r := c.rect()
	c.mu.Unlock()

	values := map[string]any{
		KeyWidth:  Px(r.W).String(),
		KeyHeight: Px(r.H).String(),
	}
	switch edge {
	case EdgeLeft, EdgeRight:
		values[KeyLeft] = Px(r.X).String()
	case EdgeTop:
		values[KeyTop] = Px(r.Y).String()
	}
	c.persist(ctx, values)
}

// AdjustFont changes the font multiplier by delta, clamped to its bounds,
// persists it and returns the new value.
func (c *Controller) AdjustFont(ctx context.Context, delta float64) float64 {
	c.mu.Lock()
	m := math.Round((c.g.FontSizeMultiplier+delta)*10) / 10
	m = clamp(m, MinFontMultiplier, MaxFontMultiplier)
	c.g.FontSizeMultiplier = m
	c.mu.Unlock()

	c.persist(ctx, map[string]any{KeyFontMultiplier: m})
	c.changed()
	return m
}

// SetViewport records a new viewport size and pulls the panel back inside it.
func (c *Controller) SetViewport(vw, vh float64) {
	c.mu.Lock()
	c.vw, c.vh = vw, vh
	c.keepInViewport()
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) keepInViewport() {
	c.g.Height = clamp(c.height, MinHeight, MaxHeight(c.vh))
	if c.g.Left != nil {
		c.g.Left = ptr(clamp(*c.g.Left, 0, c.vw-c.g.Width))
	}
	if c.g.Top.Unit == UnitPx {
		c.g.Top = Px(clamp(c.g.Top.Value, 0, c.vh-c.g.Height))
	}
}
