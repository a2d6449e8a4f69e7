// Package app wires the session, synchronization service, and views into
// the root Bubble Tea model.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmorehouse/dashterm/internal/api"
	"github.com/tmorehouse/dashterm/internal/keys"
	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
	"github.com/tmorehouse/dashterm/internal/session"
	appsync "github.com/tmorehouse/dashterm/internal/sync"
	"github.com/tmorehouse/dashterm/internal/theme"
	"github.com/tmorehouse/dashterm/internal/ui/feed"
	"github.com/tmorehouse/dashterm/internal/ui/login"
)

// requestTimeout bounds the UI-initiated API calls.
const requestTimeout = 30 * time.Second

// alertDuration is how long the new-notification banner stays visible.
const alertDuration = 4 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewFeed
)

// storeEventMsg carries one notification store event to the UI.
type storeEventMsg struct {
	event notification.Event
}

// loginResultMsg carries the outcome of a login attempt.
type loginResultMsg struct {
	err error
}

// syncStartedMsg carries the outcome of bringing the feed up.
type syncStartedMsg struct {
	err error
}

// clearAlertMsg hides the transient new-notification banner.
type clearAlertMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	session     *session.Store
	auth        *api.AuthService
	sync        *appsync.Service
	keys        *keys.KeyMap

	loginView login.Model
	feedView  feed.Model
	events    <-chan notification.Event

	alert  string
	width  int
	height int
}

// New creates the root application model. The session store must already
// be rehydrated.
func New(sess *session.Store, auth *api.AuthService, syncSvc *appsync.Service) Model {
	k := keys.DefaultKeyMap()

	view := ViewLogin
	if sess.IsAuthenticated() {
		view = ViewFeed
	}

	return Model{
		currentView: view,
		session:     sess,
		auth:        auth,
		sync:        syncSvc,
		keys:        k,
		loginView:   login.New(80, 24),
		feedView:    feed.New(syncSvc, k, 80, 24),
		events:      syncSvc.Events(),
	}
}

// Init brings the feed up when a persisted session survived the restart,
// otherwise shows the login form.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewFeed {
		return tea.Batch(m.startSync(), m.waitForEvent())
	}
	return m.loginView.Init()
}

// waitForEvent returns a command that waits for the next store event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return storeEventMsg{event: ev}
	}
}

// startSync brings the synchronization service up for the current token.
func (m Model) startSync() tea.Cmd {
	return func() tea.Msg {
		err := m.sync.Start(context.Background(), m.session.AccessToken())
		return syncStartedMsg{err: err}
	}
}

// doLogin authenticates and installs the session.
func (m Model) doLogin(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp, err := m.auth.Login(ctx, email, password)
		if err != nil {
			return loginResultMsg{err: err}
		}

		tokens := model.AuthTokens{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
		}
		if err := m.session.Login(tokens, resp.User); err != nil {
			return loginResultMsg{err: err}
		}

		if resp.User == nil {
			if user, err := m.auth.Me(ctx); err == nil {
				m.session.SetAuth(session.Auth{User: user})
			}
		}

		return loginResultMsg{}
	}
}

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.loginView.SetSize(msg.Width, msg.Height)
		m.feedView.SetSize(msg.Width, msg.Height-1)
		return m, nil

	case login.SubmitMsg:
		return m, m.doLogin(msg.Email, msg.Password)

	case loginResultMsg:
		if msg.err != nil {
			if api.IsUnauthorized(msg.err) {
				m.loginView.SetError("invalid email or password")
			} else {
				m.loginView.SetError("login failed: " + msg.err.Error())
			}
			return m, m.loginView.Init()
		}
		m.currentView = ViewFeed
		return m, tea.Batch(m.startSync(), m.waitForEvent())

	case syncStartedMsg:
		m.feedView.Reload()
		return m, nil

	case storeEventMsg:
		m.feedView.Reload()
		cmds := []tea.Cmd{m.waitForEvent()}
		if msg.event.Kind == notification.EventAdded && msg.event.Notification != nil {
			m.alert = msg.event.Notification.Title
			cmds = append(cmds, tea.Tick(alertDuration, func(time.Time) tea.Msg {
				return clearAlertMsg{}
			}))
		}
		return m, tea.Batch(cmds...)

	case clearAlertMsg:
		m.alert = ""
		return m, nil

	case tea.KeyMsg:
		if m.currentView == ViewFeed {
			switch msg.String() {
			case "q", "ctrl+c":
				m.sync.Stop()
				return m, tea.Quit
			case "ctrl+l":
				// Token loss tears the channel down; it is not re-opened
				// until a new token exists.
				m.sync.Stop()
				m.session.Logout()
				m.currentView = ViewLogin
				m.loginView = login.New(m.width, m.height)
				return m, m.loginView.Init()
			}
		} else if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewFeed:
		m.feedView, cmd = m.feedView.Update(msg)
	}
	return m, cmd
}

// View renders the active view with the transient alert banner.
func (m Model) View() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	default:
		banner := ""
		if m.alert != "" {
			banner = theme.AlertStyle.Render("new: "+m.alert) + "\n"
		}
		user := ""
		if u := m.session.User(); u != nil {
			user = theme.HelpStyle.Render(u.DisplayName())
		}
		header := lipgloss.JoinHorizontal(lipgloss.Top, banner, user)
		return header + "\n" + m.feedView.View()
	}
}
