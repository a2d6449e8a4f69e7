package notification_test

import (
	"testing"
	"time"

	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
)

func sample(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     "title " + id,
		Message:   "message " + id,
		Type:      model.NotificationTypeSystem,
		Read:      read,
		CreatedAt: time.Now(),
	}
}

func TestSetAllLeavesCountAlone(t *testing.T) {
	s := notification.NewStore()
	s.SetUnreadCount(3)

	s.SetAll([]model.Notification{sample("a", false), sample("b", true)})

	if got := s.UnreadCount(); got != 3 {
		t.Errorf("unread count = %d, want 3 (snapshot must not touch it)", got)
	}
	if got := len(s.Notifications()); got != 2 {
		t.Errorf("len = %d, want 2", got)
	}
}

func TestAddPrepends(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("old", true)})

	s.Add(sample("new", false))

	list := s.Notifications()
	if len(list) != 2 || list[0].ID != "new" {
		t.Fatalf("expected new notification at the front, got %+v", list)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread count = %d, want 1", got)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("a", false)})
	s.SetUnreadCount(1)

	s.MarkRead("a")
	s.MarkRead("a")

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread count = %d, want 0 (never double-decremented)", got)
	}
	if !s.Notifications()[0].Read {
		t.Error("expected notification marked read")
	}
}

func TestMarkReadUnknownIDIsNoop(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("a", false)})
	s.SetUnreadCount(1)

	s.MarkRead("missing")

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread count = %d, want 1", got)
	}
}

func TestMarkReadNeverBelowZero(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("a", false)})
	// Server said zero even though one local entry is unread.
	s.SetUnreadCount(0)

	s.MarkRead("a")

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread count = %d, want 0", got)
	}
}

func TestMarkAllReadThenAdd(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("a", false), sample("b", false)})
	s.SetUnreadCount(2)

	s.MarkAllRead()
	s.Add(sample("c", false))

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread count = %d, want 1", got)
	}
	list := s.Notifications()
	if list[0].ID != "c" || list[0].Read {
		t.Errorf("expected fresh unread notification at the front, got %+v", list[0])
	}
	for _, n := range list[1:] {
		if !n.Read {
			t.Errorf("notification %s should be read", n.ID)
		}
	}
}

func TestSubscribePublishesMutations(t *testing.T) {
	s := notification.NewStore()
	events := s.Subscribe()
	defer s.Unsubscribe(events)

	s.Add(sample("a", false))
	s.MarkRead("a")
	s.MarkAllRead()
	s.SetUnreadCount(5)
	s.SetConnectionStatus(true)

	want := []notification.EventKind{
		notification.EventAdded,
		notification.EventRead,
		notification.EventAllRead,
		notification.EventCount,
		notification.EventConnection,
	}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind != kind {
				t.Errorf("event %d kind = %v, want %v", i, ev.Kind, kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestConnectionFlagDoesNotTouchData(t *testing.T) {
	s := notification.NewStore()
	s.SetAll([]model.Notification{sample("a", false)})
	s.SetUnreadCount(1)

	s.SetConnectionStatus(true)
	s.SetConnectionStatus(false)

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread count = %d, want 1", got)
	}
	if got := len(s.Notifications()); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
}
