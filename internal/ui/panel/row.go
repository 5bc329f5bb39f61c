package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/theme"
)

// renderRow draws a single notification line, truncated to width.
func renderRow(n model.Notification, selected bool, width int, now time.Time) string {
	marker := " "
	msgStyle := theme.ReadStyle
	if !n.IsRead {
		marker = lipgloss.NewStyle().Foreground(theme.ColorRed).Render("●")
		msgStyle = theme.UnreadStyle
	}

	kindLabel := theme.KindStyle(n.Kind).Render(kindTag(n.Kind))

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(n.CreatedAt, now))

	line := fmt.Sprintf("%s %s %s  %s",
		marker, kindLabel, msgStyle.Render(n.Message), timeStr,
	)

	if selected {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	if width > 0 {
		line = lipgloss.NewStyle().MaxWidth(width).Render(line)
	}
	return line
}

// kindTag returns a fixed-width three letter tag for a kind.
func kindTag(k model.Kind) string {
	s := strings.ToUpper(string(k))
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

// relativeTime returns a human-friendly time relative to now. Anything
// older than a week shows the local date.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("Jan 02 15:04")
	}
}
