package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/feed"
	"github.com/nhle/milkfeed/internal/inbox"
	"github.com/nhle/milkfeed/internal/keys"
	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/store"
	"github.com/nhle/milkfeed/internal/theme"
	"github.com/nhle/milkfeed/internal/ui"
	helpview "github.com/nhle/milkfeed/internal/ui/help"
	"github.com/nhle/milkfeed/internal/ui/panel"
	"github.com/nhle/milkfeed/internal/ui/settings"
	"github.com/nhle/milkfeed/internal/ui/toast"
)

// loadTimeout bounds the initial read of the local store.
const loadTimeout = 5 * time.Second

// initialLoadedMsg carries the stored notifications read at startup.
type initialLoadedMsg struct {
	records []model.Notification
	err     error
}

// listenerEventMsg wraps an event from the listener of generation gen.
type listenerEventMsg struct {
	gen      int
	msg      tea.Msg
	listener *feed.Listener
}

// listenerClosedMsg is sent when the listener of generation gen stopped.
type listenerClosedMsg struct {
	gen int
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewHome ViewState = iota
	ViewHelp
	ViewSettings
)

// Options configures the root model.
type Options struct {
	Config     model.AppConfig
	ConfigPath string
	Store      store.Store

	// NewSource overrides how the feed source is built. Defaults to NewSource.
	NewSource SourceFactory

	// ListenerOptions are passed to every listener the model starts.
	ListenerOptions []feed.Option
}

// Model is the root Bubble Tea model. It owns the feed state and is the
// only place the badge is changed.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg        model.AppConfig
	configPath string
	store      store.Store
	newSource  SourceFactory
	listenOpts []feed.Option

	feed         *inbox.FeedState
	panel        *inbox.Panel
	panelView    panel.Model
	toast        toast.Model
	helpView     helpview.Model
	settingsView settings.Model

	listener *feed.Listener
	gen      int
	conn     feed.StatusMsg
	loaded   bool

	statusMsg string
	ready     bool
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	fs := inbox.NewFeedState()

	newSource := opts.NewSource
	if newSource == nil {
		newSource = NewSource
	}

	ttl := time.Duration(opts.Config.Display.ToastSeconds) * time.Second

	return Model{
		currentView:  ViewHome,
		layout:       ui.NewLayout(80, 24),
		keys:         k,
		cfg:          opts.Config,
		configPath:   opts.ConfigPath,
		store:        opts.Store,
		newSource:    newSource,
		listenOpts:   opts.ListenerOptions,
		feed:         fs,
		panel:        &inbox.Panel{},
		panelView:    panel.New(fs, opts.Store, k, 40, 22),
		toast:        toast.New(ttl),
		helpView:     helpview.New(k, 80, 22),
		settingsView: settings.New(opts.Config, opts.ConfigPath, 80, 22),
		conn:         feed.StatusMsg{State: feed.StateConnecting},
	}
}

// Init loads the stored notifications. The listener starts once they are
// rendered, so no live arrival is overwritten by the initial render.
func (m Model) Init() tea.Cmd {
	return m.loadInitial()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to settings so huh can calculate its layout.
		var cmd tea.Cmd
		m.settingsView, cmd = m.settingsView.Update(msg)
		return m, cmd

	case initialLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			log.Printf("loading stored notifications: %v", msg.err)
			m.statusMsg = "stored notifications unavailable"
		}
		m.feed.RenderInitial(msg.records)
		m.panelView.Refresh()
		return m, m.startListener()

	case listenerEventMsg:
		current := msg.gen == m.gen
		cmd := m.handleFeedEvent(msg.msg, current)
		if !current {
			// Drain a replaced listener until its channel closes.
			return m, tea.Batch(cmd, waitFor(msg.listener, msg.gen))
		}
		return m, tea.Batch(cmd, waitFor(m.listener, m.gen))

	case listenerClosedMsg:
		if msg.gen == m.gen {
			m.listener = nil
		}
		return m, nil

	case panel.MarkedReadMsg:
		if msg.Err != nil {
			log.Printf("persisting read flag for %s: %v", msg.ID, msg.Err)
			m.statusMsg = "read state not saved"
		}
		return m, nil

	case settings.SavedMsg:
		m.cfg = msg.Config
		m.currentView = ViewHome
		m.statusMsg = "settings saved"
		return m, m.restartListener()

	case settings.ClosedMsg:
		m.currentView = ViewHome
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

// handleFeedEvent applies one listener event to the model. Arrivals from
// a replaced listener are still shown; its status changes are not.
func (m *Model) handleFeedEvent(msg tea.Msg, current bool) tea.Cmd {
	switch msg := msg.(type) {
	case feed.ArrivalMsg:
		if msg.PersistErr != nil {
			m.statusMsg = "last notification not saved locally"
		}
		if !m.feed.RenderIncoming(msg.Notification) {
			return nil
		}
		m.panelView.Refresh()
		return m.toast.Show(msg.Notification)

	case feed.StatusMsg:
		if current {
			m.conn = msg
		}
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stopListener()
		return m, tea.Quit
	}

	// The settings form owns the keyboard while open.
	if m.currentView == ViewSettings {
		return m.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopListener()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.panel.Hide()
		return m, nil

	case key.Matches(msg, m.keys.ToggleInbox):
		m.panel.Toggle()
		m.currentView = ViewHome
		return m, nil

	case key.Matches(msg, m.keys.CloseToast):
		m.toast.Close()
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.previousView = m.currentView
		m.currentView = ViewSettings
		return m, m.settingsView.Open(m.cfg)

	case key.Matches(msg, m.keys.Reconnect):
		if !m.loaded {
			return m, nil
		}
		m.statusMsg = ""
		return m, m.restartListener()
	}

	if m.currentView == ViewHome && (m.panel.Visible() || key.Matches(msg, m.keys.MarkAllRead)) {
		var cmd tea.Cmd
		m.panelView, cmd = m.panelView.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.currentView != ViewHome ||
		msg.Action != tea.MouseActionPress ||
		msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	panelRect := m.layout.PanelRect()
	if m.panel.Visible() && panelRect.Contains(msg.X, msg.Y) {
		m.panelView.Select(msg.Y - panelRect.Y)
		return m, nil
	}

	m.panel.HandleClick(msg.X, msg.Y, m.triggerRect(), panelRect)
	return m, nil
}

// updateActiveView dispatches the message to the currently active view.
// The toast sees every message whatever view is active.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var toastCmd, cmd tea.Cmd
	m.toast, toastCmd = m.toast.Update(msg)

	switch m.currentView {
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	default:
		m.panelView, cmd = m.panelView.Update(msg)
	}

	return m, tea.Batch(toastCmd, cmd)
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("milkfeed", m.trigger(), m.connStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.toast.View(), m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewSettings:
		return m.settingsView.View()
	}

	if !m.panel.Visible() {
		return m.renderOverview(m.layout.ContentWidth())
	}

	w := m.layout.PanelWidth()
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderOverview(m.layout.ContentWidth()-w),
		m.panelView.View(),
	)
}

// renderOverview shows the connection and inbox summary.
func (m Model) renderOverview(width int) string {
	if width <= 0 {
		return ""
	}

	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	var b strings.Builder

	b.WriteString(label.Render("Feed"))
	b.WriteString(describeSource(m.cfg.Feed))
	b.WriteString("\n")

	b.WriteString(label.Render("Status"))
	b.WriteString(theme.ConnStyle(m.conn.State.String()).Render(m.conn.State.String()))
	if m.conn.State == feed.StateReconnecting {
		b.WriteString(fmt.Sprintf(" (attempt %d, next in %s)",
			m.conn.Attempt, m.conn.RetryIn.Round(100*time.Millisecond)))
	}
	if m.conn.Err != nil && m.conn.State != feed.StateConnected {
		b.WriteString("\n")
		b.WriteString(label.Render(""))
		b.WriteString(theme.HelpStyle.Render(m.conn.Err.Error()))
	}
	b.WriteString("\n")

	b.WriteString(label.Render("Inbox"))
	b.WriteString(fmt.Sprintf("%d total, %d unread", m.feed.Len(), m.feed.Badge()))
	b.WriteString("\n")

	if latest, ok := m.feed.At(0); ok {
		b.WriteString(label.Render("Latest"))
		b.WriteString(theme.KindStyle(latest.Kind).UnsetPadding().Render(latest.Message))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true).
			Render(m.statusMsg))
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(width).
		Height(m.layout.ContentHeight()).
		MaxWidth(width).
		Render(b.String())
}

// trigger returns the header label that opens the panel. The unread
// badge is hidden when nothing is unread.
func (m Model) trigger() string {
	label := "✉ inbox"
	if n := m.feed.Badge(); n > 0 {
		label += fmt.Sprintf(" [%d unread]", n)
	}
	return label
}

func (m Model) triggerRect() inbox.Rect {
	return m.layout.TriggerRect(m.trigger(), m.connStatus())
}

// connStatus returns a short string describing the connection.
func (m Model) connStatus() string {
	if !m.loaded {
		return "loading"
	}
	if m.listener == nil && m.conn.State != feed.StateGaveUp {
		return "no feed"
	}
	return m.conn.State.String()
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewSettings:
		return "enter next | esc cancel"
	}
	if m.panel.Visible() {
		return "j/k move | m read | M all read | esc close | ? help"
	}
	if m.conn.State == feed.StateGaveUp {
		return "r reconnect | s settings | i inbox | q quit"
	}
	return "i inbox | M all read | s settings | ? help | q quit"
}

func (m *Model) resize() {
	w := m.layout.ContentWidth()
	h := m.layout.ContentHeight()
	m.panelView.SetSize(m.layout.PanelWidth(), h)
	m.helpView.SetSize(w, h)
	m.settingsView.SetSize(w, h)
}

// loadInitial returns a command that reads every stored notification.
func (m Model) loadInitial() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		records, err := s.GetAll(ctx)
		return initialLoadedMsg{records: records, err: err}
	}
}

// startListener builds the configured source and starts a new listener
// generation.
func (m *Model) startListener() tea.Cmd {
	m.gen++

	src, err := m.newSource(m.cfg.Feed)
	if err != nil {
		log.Printf("building feed source: %v", err)
		m.listener = nil
		m.conn = feed.StatusMsg{State: feed.StateGaveUp, Err: err}
		return nil
	}

	opts := append([]feed.Option{feed.WithMaxRetries(m.cfg.Feed.MaxRetries)}, m.listenOpts...)
	m.listener = feed.NewListener(src, m.store, opts...)
	m.conn = feed.StatusMsg{Source: src.Name(), State: feed.StateConnecting}
	m.listener.Start()

	return waitFor(m.listener, m.gen)
}

// restartListener stops the running listener and starts a fresh one.
func (m *Model) restartListener() tea.Cmd {
	m.stopListener()
	return m.startListener()
}

func (m *Model) stopListener() {
	if m.listener != nil {
		m.listener.Stop()
	}
}

// waitFor returns a command that waits for the next event of l, tagged
// with the listener generation.
func waitFor(l *feed.Listener, gen int) tea.Cmd {
	if l == nil {
		return nil
	}
	wait := l.WaitForEvent()
	return func() tea.Msg {
		msg := wait()
		if msg == nil {
			return listenerClosedMsg{gen: gen}
		}
		return listenerEventMsg{gen: gen, msg: msg, listener: l}
	}
}
