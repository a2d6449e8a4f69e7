package feed

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmorehouse/dashterm/internal/keys"
	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/sync"
	"github.com/tmorehouse/dashterm/internal/theme"
)

// Item wraps a notification for the bubbles list.
type Item struct {
	Notification model.Notification
}

// Title renders the notification headline with an unread marker.
func (i Item) Title() string {
	if i.Notification.Read {
		return "  " + i.Notification.Title
	}
	return "● " + i.Notification.Title
}

// Description renders the notification body and relative category.
func (i Item) Description() string {
	return fmt.Sprintf("%s · %s",
		i.Notification.CreatedAt.Local().Format("Jan 2 15:04"),
		i.Notification.Message,
	)
}

// FilterValue makes the item searchable by title and message.
func (i Item) FilterValue() string {
	return i.Notification.Title + " " + i.Notification.Message
}

// Model is the notification feed view, fed by the synchronization service.
type Model struct {
	list    list.Model
	service *sync.Service
	keys    *keys.KeyMap
	width   int
	height  int
}

// New creates the feed view on top of the synchronization service.
func New(service *sync.Service, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	m := Model{
		list:    l,
		service: service,
		keys:    k,
		width:   width,
		height:  height,
	}
	m.Reload()
	return m
}

// Reload re-reads the feed from the service into the list, keeping the
// cursor in place when possible.
func (m *Model) Reload() {
	notifications := m.service.Notifications()
	items := make([]list.Item, len(notifications))
	for i, n := range notifications {
		items[i] = Item{Notification: n}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx < len(items) {
		m.list.Select(idx)
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.MarkRead):
			if item, ok := m.list.SelectedItem().(Item); ok {
				m.service.MarkAsRead(item.Notification.ID)
				m.Reload()
			}
			return m, nil

		case key.Matches(keyMsg, m.keys.MarkAllRead):
			m.service.MarkAllAsRead()
			m.Reload()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the feed with its status line.
func (m Model) View() string {
	status := theme.DisconnectedStyle.Render("○ offline")
	if m.service.Connected() {
		status = theme.ConnectedStyle.Render("● live")
	}

	unread := ""
	if count := m.service.UnreadCount(); count > 0 {
		unread = theme.UnreadBadgeStyle.Render(fmt.Sprintf("%d unread", count))
	}

	statusLine := lipgloss.JoinHorizontal(lipgloss.Top, status, " ", unread)
	return m.list.View() + "\n" + statusLine
}
