package tui

import (
	"math"
	"os"

	"golang.org/x/term"

	"github.com/ziadkadry99/ewriter/internal/geometry"
	"github.com/ziadkadry99/ewriter/internal/panel"
)

// A terminal cell stands in for this many CSS pixels.
const (
	cellWidthPx  = 8.0
	cellHeightPx = 16.0
)

// footerRows are reserved below the page for the input line and help.
const footerRows = 2

const (
	toggleWidth   = 3
	controlsWidth = 9 // "[-][+][>]"
)

type box struct {
	X, Y, W, H int
}

func (b box) contains(x, y int) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}

type zone int

const (
	zoneNone zone = iota
	zoneToggle
	zoneHeader
	zoneFontDown
	zoneFontUp
	zoneCopy
	zoneContent
	zoneEdge
)

// layout is where everything sits on screen for one frame.
type layout struct {
	cols, rows  int
	collapsed   bool
	panel       box
	toggle      box
	copyVisible bool
}

func toPx(col, row int) (float64, float64) {
	return float64(col) * cellWidthPx, float64(row) * cellHeightPx
}

func viewportPx(cols, rows int) (float64, float64) {
	body := rows - footerRows
	if body < 1 {
		body = 1
	}
	return toPx(cols, body)
}

// TerminalViewport returns the page viewport in px for the terminal on f,
// assuming 80x24 when f is not a terminal.
func TerminalViewport(f *os.File) (float64, float64) {
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		cols, rows = 80, 24
	}
	return viewportPx(cols, rows)
}

func cells(px, unit float64) int {
	return int(math.Round(px / unit))
}

func panelBox(r geometry.Rect) box {
	b := box{
		X: cells(r.X, cellWidthPx),
		Y: cells(r.Y, cellHeightPx),
		W: cells(r.W, cellWidthPx),
		H: cells(r.H, cellHeightPx),
	}
	if b.W < controlsWidth+4 {
		b.W = controlsWidth + 4
	}
	if b.H < 5 {
		b.H = 5
	}
	return b
}

func computeLayout(cols, rows int, g geometry.Geometry, rect geometry.Rect, view panel.View) layout {
	_, vh := viewportPx(cols, rows)
	l := layout{
		cols:        cols,
		rows:        rows,
		collapsed:   g.Collapsed,
		copyVisible: view.CopyVisible,
	}
	l.toggle = box{
		X: cols - toggleWidth,
		Y: cells(vh*geometry.DefaultTopPercent/100, cellHeightPx),
		W: toggleWidth,
		H: 1,
	}
	if !g.Collapsed {
		l.panel = panelBox(rect)
	}
	return l
}

// zoneAt hit-tests a mouse press at cell (x, y).
func (l layout) zoneAt(x, y int) (zone, geometry.Edge) {
	if l.collapsed {
		if l.toggle.contains(x, y) {
			return zoneToggle, ""
		}
		return zoneNone, ""
	}

	b := l.panel
	if !b.contains(x, y) {
		return zoneNone, ""
	}
	switch {
	case y == b.Y:
		return zoneEdge, geometry.EdgeTop
	case y == b.Y+b.H-1:
		return zoneEdge, geometry.EdgeBottom
	case x == b.X:
		return zoneEdge, geometry.EdgeLeft
	case x == b.X+b.W-1:
		return zoneEdge, geometry.EdgeRight
	}

	inner := x - b.X - 1
	iw := b.W - 2
	if y == b.Y+1 {
		switch {
		case inner >= iw-3:
			return zoneToggle, ""
		case inner >= iw-6:
			return zoneFontUp, ""
		case inner >= iw-controlsWidth:
			return zoneFontDown, ""
		default:
			return zoneHeader, ""
		}
	}
	if l.copyVisible && y == b.Y+b.H-2 {
		return zoneCopy, ""
	}
	return zoneContent, ""
}
