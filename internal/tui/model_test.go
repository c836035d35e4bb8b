package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ewriter/internal/db"
	"github.com/ziadkadry99/ewriter/internal/geometry"
	"github.com/ziadkadry99/ewriter/internal/kvstore"
	"github.com/ziadkadry99/ewriter/internal/page"
	"github.com/ziadkadry99/ewriter/internal/panel"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

type memClipboard struct{ text string }

func (c *memClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

// newModel returns a model on a 120x42 terminal (960x640 px page) with an
// expanded, docked panel.
func newModel(t *testing.T) (*Model, *page.Page, *memClipboard) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clip := &memClipboard{}
	doc := panel.Document{URL: "https://example.com", TopLevel: true}
	geo := geometry.NewController(kvstore.NewStore(database).In(kvstore.AreaLocal), 960, 640)
	pnl := panel.NewController(doc, panel.WithClipboard(clip))
	p := page.New(doc, pnl, geo)

	require.NoError(t, pnl.Ensure())
	geo.Expand(context.Background())

	m := New(context.Background(), p)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 42})
	return m, p, clip
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone}
}

func TestLayoutZones(t *testing.T) {
	m, _, _ := newModel(t)
	l := m.layout()

	// Docked at 680,128 px with 280x400 px.
	assert.Equal(t, box{X: 85, Y: 8, W: 35, H: 25}, l.panel)

	tests := []struct {
		x, y int
		zone zone
		edge geometry.Edge
	}{
		{90, 9, zoneHeader, ""},
		{117, 9, zoneToggle, ""},
		{114, 9, zoneFontUp, ""},
		{111, 9, zoneFontDown, ""},
		{85, 15, zoneEdge, geometry.EdgeLeft},
		{119, 15, zoneEdge, geometry.EdgeRight},
		{100, 8, zoneEdge, geometry.EdgeTop},
		{100, 32, zoneEdge, geometry.EdgeBottom},
		{100, 15, zoneContent, ""},
		{10, 10, zoneNone, ""},
	}
	for _, tt := range tests {
		z, edge := l.zoneAt(tt.x, tt.y)
		assert.Equal(t, tt.zone, z, "zone at %d,%d", tt.x, tt.y)
		assert.Equal(t, tt.edge, edge, "edge at %d,%d", tt.x, tt.y)
	}
}

func TestCollapsedLayoutOnlyHasToggle(t *testing.T) {
	m, p, _ := newModel(t)
	p.Geometry().Toggle(context.Background())

	l := m.layout()
	assert.Equal(t, box{X: 117, Y: 8, W: 3, H: 1}, l.toggle)
	z, _ := l.zoneAt(118, 8)
	assert.Equal(t, zoneToggle, z)
	z, _ = l.zoneAt(100, 15)
	assert.Equal(t, zoneNone, z)
}

func TestWindowSizeSetsViewport(t *testing.T) {
	m, p, _ := newModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})

	// 800x288 px: docked at the right edge, height capped at 90% of 288.
	r := p.Geometry().Rect()
	assert.Equal(t, 520.0, r.X)
	assert.Equal(t, 259.0, r.H)
}

func TestMouseDragMovesPanel(t *testing.T) {
	m, p, _ := newModel(t)

	m.Update(press(90, 9))
	assert.Equal(t, gestureDrag, m.gesture)
	m.Update(motion(80, 9))
	m.Update(release(80, 9))
	assert.Equal(t, gestureNone, m.gesture)

	g := p.Geometry().Geometry()
	require.NotNil(t, g.Left)
	assert.Equal(t, 600.0, *g.Left)
	assert.Equal(t, geometry.Px(128), g.Top)
}

func TestMouseResizeRightEdge(t *testing.T) {
	m, p, _ := newModel(t)

	m.Update(press(119, 15))
	m.Update(motion(115, 15))
	m.Update(release(115, 15))

	g := p.Geometry().Geometry()
	assert.Equal(t, 248.0, g.Width)
}

func TestHeaderButtons(t *testing.T) {
	m, p, _ := newModel(t)

	m.Update(press(114, 9))
	assert.InDelta(t, 1.1, p.Geometry().Geometry().FontSizeMultiplier, 1e-9)
	m.Update(press(111, 9))
	m.Update(press(111, 9))
	assert.InDelta(t, 0.9, p.Geometry().Geometry().FontSizeMultiplier, 1e-9)

	v, _ := p.Panel().View()
	assert.InDelta(t, 12.6, v.FontSize, 1e-9)

	m.Update(press(117, 9))
	assert.True(t, p.Geometry().Geometry().Collapsed)
}

func TestTabAnimatesCollapseAfterDrag(t *testing.T) {
	m, p, _ := newModel(t)
	m.Update(press(90, 9))
	m.Update(motion(60, 9))
	m.Update(release(60, 9))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.NotNil(t, cmd)
	assert.True(t, p.Geometry().Geometry().Collapsed)
	require.Len(t, m.frames, 13)

	m.Update(frameMsg{})
	assert.Len(t, m.frames, 12)
	assert.Contains(t, m.View(), panel.Title)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Empty(t, m.frames)
	assert.False(t, p.Geometry().Geometry().Collapsed)
}

func TestTabSnapsWhenDocked(t *testing.T) {
	m, p, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Nil(t, cmd)
	assert.Empty(t, m.frames)
	assert.True(t, p.Geometry().Geometry().Collapsed)
	assert.Contains(t, m.View(), "[<]")
}

func TestCopyShortcut(t *testing.T) {
	m, p, clip := newModel(t)
	_, err := p.Panel().ShowResult(0, translate.Success("Good morning"))
	require.NoError(t, err)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "Good morning", clip.text)

	v, _ := p.Panel().View()
	assert.Equal(t, panel.CopiedLabel, v.CopyLabel)
	assert.Contains(t, m.View(), panel.CopiedLabel)
}

func TestTypingUpdatesSelection(t *testing.T) {
	m, p, _ := newModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("你好")})
	assert.Equal(t, "你好", p.Selection())
}

func TestViewRendersState(t *testing.T) {
	m, p, _ := newModel(t)
	_, err := p.Panel().ShowLoading(1)
	require.NoError(t, err)

	out := m.View()
	assert.Contains(t, out, panel.Title)
	assert.Contains(t, out, panel.LoadingText)
	assert.Contains(t, out, panel.ShortcutPending)
}

func TestTerminalViewportFallsBackWithoutTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	vw, vh := TerminalViewport(f)
	assert.Equal(t, 640.0, vw)
	assert.Equal(t, 352.0, vh)
}
