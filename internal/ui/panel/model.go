// Package panel is the Bubble Tea view of the notification inbox.
package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/inbox"
	"github.com/nhle/milkfeed/internal/keys"
	"github.com/nhle/milkfeed/internal/store"
	"github.com/nhle/milkfeed/internal/theme"
)

// storeTimeout bounds a single mark-read write.
const storeTimeout = 5 * time.Second

// headerLines is the number of lines above the entry list inside the frame.
const headerLines = 2

// MarkedReadMsg reports the result of persisting a read flag.
type MarkedReadMsg struct {
	ID      string
	Changed bool
	Err     error
}

// Model renders the feed entries and handles read-state keys. The feed
// state is shared with the root model and mutated only from Update.
type Model struct {
	feed     *inbox.FeedState
	store    store.Store
	keys     *keys.KeyMap
	viewport viewport.Model
	cursor   int
	selected string
	now      func() time.Time
	width    int
	height   int
}

// New creates a panel view over feed.
func New(feed *inbox.FeedState, s store.Store, k *keys.KeyMap, width, height int) Model {
	m := Model{
		feed:  feed,
		store: s,
		keys:  k,
		now:   time.Now,
	}
	m.viewport = viewport.New(0, 0)
	m.SetSize(width, height)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles navigation and read-state keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(keyMsg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(keyMsg, m.keys.MarkRead):
		e, ok := m.feed.At(m.cursor)
		if !ok || !m.feed.MarkRead(e.ID) {
			return m, nil
		}
		m.Refresh()
		return m, m.persistRead(e.ID)

	case key.Matches(keyMsg, m.keys.MarkAllRead):
		changed := m.feed.MarkAllRead()
		if len(changed) == 0 {
			return m, nil
		}
		m.Refresh()
		cmds := make([]tea.Cmd, len(changed))
		for i, id := range changed {
			cmds[i] = m.persistRead(id)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// Select moves the cursor to the entry at screen row y, relative to the
// panel's top-left corner. It reports whether an entry was hit.
func (m *Model) Select(y int) bool {
	// One border line plus the title lines.
	idx := y - 1 - headerLines + m.viewport.YOffset
	if _, ok := m.feed.At(idx); !ok || y-1-headerLines < 0 {
		return false
	}
	m.cursor = idx
	m.Refresh()
	return true
}

// Cursor returns the index of the highlighted entry.
func (m Model) Cursor() int { return m.cursor }

// Refresh re-renders the entry list after the feed state changed. The
// highlighted entry stays on the same notification when it is still shown.
func (m *Model) Refresh() {
	entries := m.feed.Entries()

	if m.selected != "" {
		for i, e := range entries {
			if e.ID == m.selected {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(entries) {
		m.cursor = len(entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.selected = ""
	if m.cursor < len(entries) {
		m.selected = entries[m.cursor].ID
	}

	now := m.now()
	rows := make([]string, len(entries))
	for i, e := range entries {
		rows[i] = renderRow(e, i == m.cursor, m.viewport.Width, now)
	}
	m.viewport.SetContent(strings.Join(rows, "\n"))

	// Keep the cursor row inside the viewport.
	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.cursor)
	case m.viewport.Height > 0 && m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

// View renders the framed panel.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	title := titleStyle.Render("Notifications")
	if n := m.feed.Badge(); n > 0 {
		title += " " + theme.BadgeStyle.Render(fmt.Sprintf("%d unread", n))
	}

	var body string
	if m.feed.Len() == 0 {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No notifications yet.")
	} else {
		body = m.viewport.View()
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", body)

	return theme.PanelStyle.
		Width(m.innerWidth()).
		Height(m.innerHeight()).
		Render(content)
}

// SetSize updates the panel dimensions, including its frame.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = m.innerWidth() - theme.PanelStyle.GetHorizontalPadding()
	m.viewport.Height = m.innerHeight() - headerLines
	if m.viewport.Height < 0 {
		m.viewport.Height = 0
	}
	m.Refresh()
}

// SetClock overrides the clock used for relative times.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
	m.Refresh()
}

func (m Model) innerWidth() int {
	w := m.width - theme.PanelStyle.GetHorizontalBorderSize()
	if w < 0 {
		return 0
	}
	return w
}

func (m Model) innerHeight() int {
	h := m.height - theme.PanelStyle.GetVerticalBorderSize()
	if h < 0 {
		return 0
	}
	return h
}

func (m *Model) moveCursor(delta int) {
	n := m.feed.Len()
	if n == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	m.selected = ""
	if e, ok := m.feed.At(m.cursor); ok {
		m.selected = e.ID
	}
	m.Refresh()
}

// persistRead returns a command that writes the read flag for id.
func (m Model) persistRead(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		changed, err := s.MarkRead(ctx, id)
		return MarkedReadMsg{ID: id, Changed: changed, Err: err}
	}
}
