// Package geometry owns the sidebar's placement, size, collapsed state and
// font scale, and persists user adjustments to the device-local store.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinWidth  = 200.0
	MaxWidth  = 800.0
	MinHeight = 150.0

	DefaultWidth      = 280.0
	DefaultHeight     = 400.0
	DefaultTopPercent = 20.0

	MinFontMultiplier     = 0.7
	MaxFontMultiplier     = 2.0
	DefaultFontMultiplier = 1.0
	FontStep              = 0.1

	// SnapThreshold is how far, in px, the panel may sit from its docked
	// position and still count as docked.
	SnapThreshold = 5.0

	CollapseDuration = 200 * time.Millisecond
	FrameInterval    = 16 * time.Millisecond

	maxHeightRatio = 0.9
)

// Local store keys.
const (
	KeyCollapsed       = "sidebarCollapsed"
	KeyTop             = "ewSidebarTop"
	KeyLeft            = "ewSidebarLeft"
	KeyWidth           = "ewSidebarWidth"
	KeyHeight          = "ewSidebarHeight"
	KeyLastDraggedLeft = "ewSidebarLastDraggedLeft"
	KeyLastDraggedTop  = "ewSidebarLastDraggedTop"
	KeyFontMultiplier  = "fontSizeMultiplier"
)

var allKeys = []string{
	KeyCollapsed, KeyTop, KeyLeft, KeyWidth, KeyHeight,
	KeyLastDraggedLeft, KeyLastDraggedTop, KeyFontMultiplier,
}

// MaxHeight is the tallest the panel may be in a viewport of height vh.
func MaxHeight(vh float64) float64 {
	return math.Floor(vh * maxHeightRatio)
}

// Unit is a CSS-style length unit.
type Unit string

const (
	UnitPx      Unit = "px"
	UnitPercent Unit = "%"
)

// Length is a px or percentage length.
type Length struct {
	Value float64
	Unit  Unit
}

// Px returns a px length.
func Px(v float64) Length { return Length{Value: v, Unit: UnitPx} }

// Percent returns a percentage length.
func Percent(v float64) Length { return Length{Value: v, Unit: UnitPercent} }

// Resolve converts l to px against a reference size.
func (l Length) Resolve(total float64) float64 {
	if l.Unit == UnitPercent {
		return total * l.Value / 100
	}
	return l.Value
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(l.Unit)
}

// ParseLength parses "150px", "20%" or a bare number (px).
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	unit := UnitPx
	switch {
	case strings.HasSuffix(s, "px"):
		s = strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "%"):
		s = strings.TrimSuffix(s, "%")
		unit = UnitPercent
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// Geometry is the sidebar's persisted layout. A nil Left means the panel is
// docked to the right edge of the viewport.
type Geometry struct {
	Top                Length
	Left               *float64
	Width              float64
	Height             float64
	Collapsed          bool
	LastDraggedLeft    *float64
	LastDraggedTop     *float64
	FontSizeMultiplier float64
}

// Default returns the layout used when nothing valid is stored: collapsed
// and docked at 20% from the top.
func Default() Geometry {
	return Geometry{
		Top:                Percent(DefaultTopPercent),
		Width:              DefaultWidth,
		Height:             DefaultHeight,
		Collapsed:          true,
		FontSizeMultiplier: DefaultFontMultiplier,
	}
}

// Rect is a resolved rectangle in px.
type Rect struct {
	X, Y, W, H float64
}

// Point is a panel position in px.
type Point struct {
	X, Y float64
}

// Transition is the animation that accompanies a state change. Frames are
// panel positions to show every FrameInterval; an empty slice means the
// change is applied without animation.
type Transition struct {
	Frames   []Point
	Duration time.Duration
}

// Animated reports whether there is anything to animate.
func (t Transition) Animated() bool { return len(t.Frames) > 0 }

// Edge names a resize handle.
type Edge string

const (
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// Valid reports whether e is a known edge.
func (e Edge) Valid() bool {
	switch e {
	case EdgeLeft, EdgeRight, EdgeTop, EdgeBottom:
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func ptr(v float64) *float64 { return &v }
