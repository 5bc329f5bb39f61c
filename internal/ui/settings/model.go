// Package settings is the feed connection form.
package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/milkfeed/internal/credential"
	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/theme"
)

// SavedMsg signals the configuration was written and the feed should be
// restarted with it.
type SavedMsg struct {
	Config model.AppConfig
}

// ClosedMsg signals the form was dismissed without saving.
type ClosedMsg struct{}

// savedInternalMsg is sent after the config file and keyring were written.
type savedInternalMsg struct {
	cfg model.AppConfig
	err error
}

// SecretWriter stores a secret under a key. An empty value removes it.
type SecretWriter func(key, value string) error

// Model is the Bubble Tea model for the feed settings form.
type Model struct {
	cfg        model.AppConfig
	configPath string
	form       *huh.Form
	saving     bool
	spinner    spinner.Model
	statusMsg  string
	setSecret  SecretWriter

	// Form values live on the heap so that copies of Model share them.
	fields *fields

	width, height int
}

// fields holds the values huh binds to.
type fields struct {
	transport  string
	host       string
	path       string
	secure     bool
	token      string
	maxRetries string
}

// New creates a settings form for cfg, written back to configPath.
func New(cfg model.AppConfig, configPath string, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:        cfg,
		configPath: configPath,
		spinner:    sp,
		setSecret:  credential.Set,
		fields:     &fields{},
		width:      width,
		height:     height,
	}
}

// SetSecretWriter replaces the keyring writer.
func (m *Model) SetSecretWriter(w SecretWriter) {
	m.setSecret = w
}

// Open resets the fields from the current config and starts the form.
func (m *Model) Open(cfg model.AppConfig) tea.Cmd {
	m.cfg = cfg
	m.saving = false
	m.statusMsg = ""

	*m.fields = fields{
		transport:  cfg.Feed.Transport,
		host:       cfg.Feed.Host,
		path:       cfg.Feed.Path,
		secure:     cfg.Feed.Secure,
		token:      "", // Never pre-fill credentials
		maxRetries: strconv.Itoa(cfg.Feed.MaxRetries),
	}

	m.form = m.buildForm()
	return m.form.Init()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and drives the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case savedInternalMsg:
		m.saving = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			return m, m.reopen()
		}
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.saving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.form == nil || m.saving {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		cfg, token := m.applyFields()
		m.saving = true
		return m, tea.Batch(m.spinner.Tick, m.save(cfg, token))
	case huh.StateAborted:
		return m, func() tea.Msg { return ClosedMsg{} }
	}

	return m, cmd
}

// View renders the form, or the saving spinner.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	if m.saving {
		return style.Render(fmt.Sprintf("%s Saving settings...", m.spinner.View()))
	}
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Feed Settings") + "\n" + m.form.View()
	if m.statusMsg != "" {
		content += "\n" + lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true).
			Render(m.statusMsg)
	}

	return style.Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transport").
				Description("Where live notifications come from").
				Options(
					huh.NewOption("WebSocket - backend push endpoint", model.TransportWebSocket),
					huh.NewOption("Redis - pub/sub channel", model.TransportRedis),
					huh.NewOption("RabbitMQ - notification queue", model.TransportAMQP),
					huh.NewOption("Mailbox - unseen IMAP messages", model.TransportMailbox),
				).
				Value(&m.fields.transport),
			huh.NewInput().
				Title("Host").
				Description("Backend host and port (e.g., plant.example.com:8000)").
				Placeholder("localhost:8000").
				Value(&m.fields.host).
				Validate(validateHost),
			huh.NewInput().
				Title("Path").
				Description("WebSocket path on the host").
				Placeholder(model.DefaultNotificationPath).
				Value(&m.fields.path),
			huh.NewConfirm().
				Title("Use TLS (wss://)").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fields.secure),
			huh.NewInput().
				Title("Access Token").
				Description("Sent as a Bearer header; leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.token),
			huh.NewInput().
				Title("Max Retries").
				Description("Reconnect attempts before going offline (0 = forever)").
				Value(&m.fields.maxRetries).
				Validate(validateRetries),
		),
	).WithWidth(m.formWidth())
}

// reopen rebuilds the form with the values the user entered.
func (m *Model) reopen() tea.Cmd {
	m.form = m.buildForm()
	return m.form.Init()
}

// applyFields copies the form values onto a copy of the current config.
func (m Model) applyFields() (model.AppConfig, string) {
	cfg := m.cfg
	cfg.Feed.Transport = m.fields.transport
	cfg.Feed.Host = strings.TrimSpace(m.fields.host)
	cfg.Feed.Path = strings.TrimSpace(m.fields.path)
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = model.DefaultNotificationPath
	}
	cfg.Feed.Secure = m.fields.secure
	if n, err := strconv.Atoi(strings.TrimSpace(m.fields.maxRetries)); err == nil {
		cfg.Feed.MaxRetries = n
	}
	return cfg, strings.TrimSpace(m.fields.token)
}

// save writes the token to the keyring and the rest to the config file.
func (m Model) save(cfg model.AppConfig, token string) tea.Cmd {
	path := m.configPath
	setSecret := m.setSecret
	return func() tea.Msg {
		if err := cfg.Validate(); err != nil {
			return savedInternalMsg{err: err}
		}
		if token != "" {
			if err := setSecret(credential.FeedToken, token); err != nil {
				return savedInternalMsg{err: fmt.Errorf("saving token: %w", err)}
			}
		}
		if err := model.SaveConfig(path, &cfg); err != nil {
			return savedInternalMsg{err: err}
		}
		return savedInternalMsg{cfg: cfg}
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// --- Validators ---

func validateHost(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("host is required")
	}
	if strings.Contains(s, "://") {
		return fmt.Errorf("enter the host without a scheme")
	}
	if strings.ContainsAny(s, " /") {
		return fmt.Errorf("host must not contain spaces or slashes")
	}
	return nil
}

func validateRetries(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("max retries must be a number")
	}
	if n < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	return nil
}
