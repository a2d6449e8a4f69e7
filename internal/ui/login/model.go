package login

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmorehouse/dashterm/internal/theme"
)

// SubmitMsg is sent when the user submits valid credentials.
type SubmitMsg struct {
	Email    string
	Password string
}

// Model is the login form view.
type Model struct {
	form     *huh.Form
	email    string
	password string
	errMsg   string
	width    int
	height   int
}

// New creates a fresh login form.
func New(width, height int) Model {
	m := Model{width: width, height: height}
	m.form = m.buildForm()
	return m
}

// buildForm constructs the huh form bound to the model's fields.
func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("email").
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.email),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password),
		),
	).WithShowHelp(false)
}

// SetError displays an inline error message under the form, e.g. a
// rejected login.
func (m *Model) SetError(msg string) {
	m.errMsg = msg
	// Rebuild so the form accepts input again after a failed submit.
	m.form = m.buildForm()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the login view. Empty fields are rejected
// locally before any network call.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		email := strings.TrimSpace(m.email)
		if email == "" || m.password == "" {
			m.errMsg = "email and password are required"
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		m.errMsg = ""
		return m, func() tea.Msg {
			return SubmitMsg{Email: email, Password: m.password}
		}
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	title := theme.HeaderStyle.Render("Sign in")
	body := m.form.View()
	if m.errMsg != "" {
		body += "\n" + theme.ErrorStyle.Render(m.errMsg)
	}
	panel := theme.PanelStyle.Render(title + "\n\n" + body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}
