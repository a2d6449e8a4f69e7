// Package notification holds the authoritative local cache of the user's
// notification feed and unread counter. The store owns its collection:
// the REST snapshot and the realtime channel are producers, never holders.
package notification

import (
	"sync"

	"github.com/tmorehouse/dashterm/internal/model"
)

// EventKind identifies a state transition published to subscribers.
type EventKind int

const (
	EventReplaced EventKind = iota
	EventAdded
	EventRead
	EventAllRead
	EventCount
	EventConnection
)

// Event describes one store mutation. Notification is set for EventAdded,
// ID for EventRead.
type Event struct {
	Kind         EventKind
	Notification *model.Notification
	ID           string
}

// Store is the in-memory notification collection plus derived unread count.
// The sequence is newest first; order within SetAll is caller-provided
// (the server defines it), Add always prepends.
type Store struct {
	mu            sync.Mutex
	notifications []model.Notification
	unreadCount   int
	connected     bool
	subscribers   []chan Event
}

// NewStore creates an empty notification store.
func NewStore() *Store {
	return &Store{}
}

// Subscribe registers a listener for store events. The channel is buffered;
// events are dropped rather than block a slow consumer.
func (s *Store) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 64)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a listener previously returned by Subscribe.
func (s *Store) Unsubscribe(ch <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// publish fans an event out to all subscribers. Callers must hold s.mu.
func (s *Store) publish(ev Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop if the subscriber is full to avoid blocking mutators
		}
	}
}

// SetAll replaces the full collection with the given snapshot. The unread
// counter is untouched: the server's count event or an explicit
// SetUnreadCount reconciles it.
func (s *Store) SetAll(list []model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = make([]model.Notification, len(list))
	copy(s.notifications, list)
	s.publish(Event{Kind: EventReplaced})
}

// Add prepends a newly pushed notification to the front of the feed and
// bumps the unread counter when it arrives unread.
func (s *Store) Add(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append([]model.Notification{n}, s.notifications...)
	if !n.Read {
		s.unreadCount++
	}
	s.publish(Event{Kind: EventAdded, Notification: &n})
}

// MarkRead marks the matching entry read and decrements the unread counter
// by at most one, never below zero. Unknown ids and already-read entries
// are no-ops, which makes the operation idempotent.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].Read {
			return
		}
		s.notifications[i].Read = true
		if s.unreadCount > 0 {
			s.unreadCount--
		}
		s.publish(Event{Kind: EventRead, ID: id})
		return
	}
}

// MarkAllRead marks every entry read and zeroes the unread counter.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unreadCount = 0
	s.publish(Event{Kind: EventAllRead})
}

// SetUnreadCount installs the server's authoritative unread counter,
// reconciling any drift from optimistic local updates.
func (s *Store) SetUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	s.unreadCount = n
	s.publish(Event{Kind: EventCount})
}

// SetConnectionStatus records whether the realtime channel is live. It is
// an observability flag only and has no effect on the collection.
func (s *Store) SetConnectionStatus(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
	s.publish(Event{Kind: EventConnection})
}

// Notifications returns a copy of the current feed, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the current unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// Connected reports whether the realtime channel is live.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
