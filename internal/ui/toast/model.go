// Package toast shows the latest live arrival in the status bar.
package toast

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/theme"
)

// maxWidth caps the rendered toast.
const maxWidth = 60

// expireMsg hides the toast it was scheduled for.
type expireMsg struct {
	seq int
}

// Model is a single-slot toast. Showing a new notification replaces the
// current one; timers scheduled for a replaced toast are ignored.
type Model struct {
	current *model.Notification
	seq     int
	ttl     time.Duration
}

// New creates a toast that hides itself after ttl. A zero ttl keeps each
// toast until it is closed or replaced.
func New(ttl time.Duration) Model {
	return Model{ttl: ttl}
}

// Show displays n and returns the command that schedules its expiry.
func (m *Model) Show(n model.Notification) tea.Cmd {
	m.seq++
	m.current = &n

	if m.ttl <= 0 {
		return nil
	}
	seq := m.seq
	return tea.Tick(m.ttl, func(time.Time) tea.Msg {
		return expireMsg{seq: seq}
	})
}

// Close hides the toast.
func (m *Model) Close() {
	m.current = nil
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool {
	return m.current != nil
}

// Current returns the notification on display.
func (m Model) Current() (model.Notification, bool) {
	if m.current == nil {
		return model.Notification{}, false
	}
	return *m.current, true
}

// Update handles expiry ticks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if e, ok := msg.(expireMsg); ok && e.seq == m.seq {
		m.current = nil
	}
	return m, nil
}

// View renders the toast, or an empty string when hidden.
func (m Model) View() string {
	if m.current == nil {
		return ""
	}
	return theme.ToastStyle(m.current.Kind).
		MaxWidth(maxWidth).
		Render(lipgloss.NewStyle().Inline(true).Render(m.current.Message))
}
