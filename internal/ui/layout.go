package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/inbox"
	"github.com/nhle/milkfeed/internal/theme"
)

// maxPanelWidth caps the notification panel width.
const maxPanelWidth = 64

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// PanelWidth returns the width of the notification panel.
func (l Layout) PanelWidth() int {
	w := l.Width / 2
	if w < 32 {
		w = l.Width
	}
	if w > maxPanelWidth {
		w = maxPanelWidth
	}
	return w
}

// PanelRect returns the screen region of the notification panel, docked
// to the right edge under the header.
func (l Layout) PanelRect() inbox.Rect {
	w := l.PanelWidth()
	return inbox.Rect{
		X: l.Width - w,
		Y: l.HeaderHeight,
		W: w,
		H: l.ContentHeight(),
	}
}

// TriggerRect returns the screen region of the header trigger, which sits
// immediately left of the status text.
func (l Layout) TriggerRect(trigger, status string) inbox.Rect {
	tw := lipgloss.Width(theme.HeaderStyle.Render(trigger))
	sw := lipgloss.Width(theme.HeaderStyle.Render(status))
	return inbox.Rect{
		X: l.Width - sw - tw,
		Y: 0,
		W: tw,
		H: l.HeaderHeight,
	}
}

// RenderHeader renders the top header bar: title on the left, then the
// panel trigger and the connection status on the right.
func (l Layout) RenderHeader(title, trigger, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	triggerRendered := theme.HeaderStyle.Render(trigger)
	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(triggerRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		triggerRendered,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty lead (such as
// a toast) is shown before the hints.
func (l Layout) RenderStatusBar(lead, hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	if lead != "" {
		rendered = lipgloss.JoinHorizontal(lipgloss.Top, lead, rendered)
	}

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
