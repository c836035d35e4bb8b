// Package tui renders a page's sidebar in the terminal and turns keys and
// mouse gestures into panel and geometry operations.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ziadkadry99/ewriter/internal/geometry"
	"github.com/ziadkadry99/ewriter/internal/logging"
	"github.com/ziadkadry99/ewriter/internal/page"
	"github.com/ziadkadry99/ewriter/internal/panel"
	"github.com/ziadkadry99/ewriter/internal/translate"
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDrag
	gestureResize
)

type changedMsg struct{}

type frameMsg struct{}

type translatedMsg struct {
	res translate.Result
	err error
}

// ConnectionClosedMsg tells the model the dispatcher connection ended.
type ConnectionClosedMsg struct{ Err error }

// Model is the bubbletea model for one page.
type Model struct {
	ctx  context.Context
	page *page.Page

	input   textinput.Model
	cols    int
	rows    int
	gesture gestureKind
	frames  []geometry.Point
	status  string
}

// New creates a model for p.
func New(ctx context.Context, p *page.Page) *Model {
	in := textinput.New()
	in.Placeholder = "Type or paste Chinese text, enter to translate"
	in.Prompt = "> "
	in.Focus()
	return &Model{ctx: ctx, page: p, input: in, cols: 80, rows: 24}
}

// Run starts the terminal program and blocks until the user quits.
func Run(ctx context.Context, p *page.Page, closed <-chan error) error {
	prog := tea.NewProgram(New(ctx, p),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	go func() {
		select {
		case err := <-closed:
			prog.Send(ConnectionClosedMsg{Err: err})
		case <-ctx.Done():
		}
	}()
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) waitForChange() tea.Cmd {
	ch := m.page.Changes()
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(geometry.FrameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.input.Width = msg.Width - 4
		vw, vh := viewportPx(m.cols, m.rows)
		m.page.Geometry().SetViewport(vw, vh)
		return m, nil

	case changedMsg:
		return m, m.waitForChange()

	case frameMsg:
		if len(m.frames) > 0 {
			m.frames = m.frames[1:]
		}
		if len(m.frames) > 0 {
			return m, nextFrame()
		}
		return m, nil

	case translatedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = ""
		}
		return m, nil

	case ConnectionClosedMsg:
		m.status = page.ErrContextInvalidated.Error()
		if msg.Err != nil {
			logging.FromContext(m.ctx).Warn().Err(msg.Err).Msg("dispatcher connection ended")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		return m, m.toggle()
	case "ctrl+y":
		m.copy()
		return m, nil
	case "alt+-":
		m.page.Geometry().AdjustFont(m.ctx, -geometry.FontStep)
		return m, nil
	case "alt+=", "alt++":
		m.page.Geometry().AdjustFont(m.ctx, geometry.FontStep)
		return m, nil
	case "enter":
		text := m.input.Value()
		m.page.SetSelection(text)
		return m, m.translate(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.page.SetSelection(m.input.Value())
	return m, cmd
}

func (m *Model) translate(text string) tea.Cmd {
	ctx, p := m.ctx, m.page
	return func() tea.Msg {
		res, err := p.TriggerTranslation(ctx, text)
		return translatedMsg{res: res, err: err}
	}
}

func (m *Model) toggle() tea.Cmd {
	tr := m.page.Geometry().Toggle(m.ctx)
	if !tr.Animated() {
		m.frames = nil
		return nil
	}
	m.frames = tr.Frames
	return nextFrame()
}

func (m *Model) copy() {
	if m.page.Copy(m.ctx) {
		m.status = ""
	}
}

func (m *Model) layout() layout {
	geo := m.page.Geometry()
	view, _ := m.page.Panel().View()
	return computeLayout(m.cols, m.rows, geo.Geometry(), geo.Rect(), view)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	geo := m.page.Geometry()
	x, y := toPx(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionMotion:
		switch m.gesture {
		case gestureDrag:
			geo.DragTo(x, y)
		case gestureResize:
			geo.ResizeTo(x, y)
		}
		return m, nil

	case tea.MouseActionRelease:
		switch m.gesture {
		case gestureDrag:
			geo.EndDrag(m.ctx)
		case gestureResize:
			geo.EndResize(m.ctx)
		}
		m.gesture = gestureNone
		return m, nil
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if !m.page.Panel().Exists() {
		return m, nil
	}

	z, edge := m.layout().zoneAt(msg.X, msg.Y)
	switch z {
	case zoneToggle:
		return m, m.toggle()
	case zoneFontDown:
		geo.AdjustFont(m.ctx, -geometry.FontStep)
	case zoneFontUp:
		geo.AdjustFont(m.ctx, geometry.FontStep)
	case zoneCopy:
		m.copy()
	case zoneHeader:
		if geo.BeginDrag(x, y) == nil {
			m.gesture = gestureDrag
		}
	case zoneEdge:
		if geo.BeginResize(edge, x, y) == nil {
			m.gesture = gestureResize
		}
	}
	return m, nil
}

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	controlStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	shortcutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	loadingStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	copiedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *Model) View() string {
	bodyRows := m.rows - footerRows
	if bodyRows < 1 {
		bodyRows = 1
	}

	var body string
	if view, ok := m.page.Panel().View(); ok {
		l := m.layout()
		switch {
		case len(m.frames) > 0:
			b := l.panel
			if l.collapsed {
				b = panelBox(m.page.Geometry().Rect())
			}
			f := m.frames[0]
			b.X, b.Y = cells(f.X, cellWidthPx), cells(f.Y, cellHeightPx)
			body = place(renderPanel(b, view, true), b.X, b.Y)
		case l.collapsed:
			body = place(controlStyle.Render("[<]"), l.toggle.X, l.toggle.Y)
		default:
			body = place(renderPanel(l.panel, view, false), l.panel.X, l.panel.Y)
		}
	}

	footer := m.input.View() + "\n" + helpStyle.Render(m.help())
	return fit(body, bodyRows) + "\n" + footer
}

func (m *Model) help() string {
	if m.status != "" {
		return errorStyle.Render(m.status)
	}
	return "enter translate · tab toggle · alt+-/alt+= font · ctrl+y copy · ctrl+c quit"
}

func place(s string, x, y int) string {
	return lipgloss.NewStyle().MarginLeft(max(x, 0)).MarginTop(max(y, 0)).Render(s)
}

// fit pads or truncates s to exactly n lines.
func fit(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderPanel(b box, view panel.View, collapsing bool) string {
	iw := b.W - 2
	ih := b.H - 2

	toggle := "[>]"
	if collapsing {
		toggle = "[<]"
	}
	title := panel.Title
	if room := iw - controlsWidth - 1; lipgloss.Width(title) > room {
		title = truncate(title, room)
	}
	gap := iw - lipgloss.Width(title) - controlsWidth
	header := titleStyle.Render(title) + strings.Repeat(" ", max(gap, 0)) + controlStyle.Render("[-][+]"+toggle)

	shortcut := shortcutStyle.Render(truncate(fmt.Sprintf("%s · %.1fpx", view.Shortcut, view.FontSize), iw))

	lines := []string{header, shortcut}

	contentRows := ih - len(lines)
	if view.CopyVisible {
		contentRows--
	}
	textStyle := lipgloss.NewStyle().Width(iw)
	switch view.State {
	case panel.StateError:
		textStyle = textStyle.Inherit(errorStyle)
	case panel.StateLoading:
		textStyle = textStyle.Inherit(loadingStyle)
	}
	content := strings.Split(textStyle.Render(view.Text), "\n")
	if len(content) > contentRows {
		content = content[:max(contentRows, 0)]
	}
	lines = append(lines, content...)
	for len(lines) < ih-boolToInt(view.CopyVisible) {
		lines = append(lines, "")
	}
	if view.CopyVisible {
		label := controlStyle.Render("[" + view.CopyLabel + "]")
		if view.CopyLabel == panel.CopiedLabel {
			label = copiedStyle.Render("[" + view.CopyLabel + "]")
		}
		lines = append(lines, label)
	}

	return borderStyle.Width(iw).Height(ih).MaxHeight(b.H).Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
