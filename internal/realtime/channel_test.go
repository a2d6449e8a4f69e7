package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// wsServer runs handler for each accepted notification connection.
func wsServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// sendFrame writes one event frame to the client.
func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		t.Errorf("marshaling frame: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Errorf("writing frame: %v", err)
	}
}

// waitClose blocks until the client closes the connection.
func waitClose(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestTokenTravelsInHandshake(t *testing.T) {
	var gotToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		waitClose(conn)
	}))
	defer srv.Close()

	store := notification.NewStore()
	ch, err := NewChannel(srv.URL, "token-xyz", store)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	eventually(t, 2*time.Second, store.Connected, "channel never connected")
	if got, _ := gotToken.Load().(string); got != "token-xyz" {
		t.Errorf("handshake token = %q, want token-xyz", got)
	}
}

func TestInboundEventsMutateStore(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		sendFrame(t, conn, EventNewNotification, model.Notification{
			ID: "n1", Title: "invite", Type: model.NotificationTypeMembershipInvite,
		})
		sendFrame(t, conn, EventUnreadCount, map[string]int{"count": 7})
		sendFrame(t, conn, EventNotificationRead, map[string]string{"notificationId": "n1"})
		waitClose(conn)
	})

	store := notification.NewStore()
	var alerted atomic.Int32
	ch, err := NewChannel(srv.URL, "tok", store, WithAlertFunc(func(model.Notification) {
		alerted.Add(1)
	}))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	// The read echo lands after the count event, so the counter settles
	// one below the pushed value.
	eventually(t, 2*time.Second, func() bool {
		list := store.Notifications()
		return len(list) == 1 && list[0].ID == "n1" && list[0].Read && store.UnreadCount() == 6
	}, "store never converged on pushed events")

	if got := alerted.Load(); got != 1 {
		t.Errorf("alert callbacks = %d, want 1", got)
	}
}

func TestAllReadEchoConverges(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		sendFrame(t, conn, EventAllNotificationsRead, nil)
		waitClose(conn)
	})

	store := notification.NewStore()
	store.SetAll([]model.Notification{
		{ID: "a"}, {ID: "b"},
	})
	store.SetUnreadCount(2)

	ch, err := NewChannel(srv.URL, "tok", store)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	// This tab issued no mutating call of its own; the echo alone must
	// converge it.
	eventually(t, 2*time.Second, func() bool {
		return store.UnreadCount() == 0
	}, "unread count never converged on all-read echo")
}

func TestOutboundMarkAsRead(t *testing.T) {
	frames := make(chan frame, 4)
	srv := wsServer(t, func(conn *websocket.Conn) {
		for {
			var msg frame
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			frames <- msg
		}
	})

	store := notification.NewStore()
	ch, err := NewChannel(srv.URL, "tok", store)
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	eventually(t, 2*time.Second, store.Connected, "channel never connected")
	ch.MarkAsRead("n9")
	ch.MarkAllRead()

	for _, wantEvent := range []string{EventMarkAsRead, EventMarkAllRead} {
		select {
		case msg := <-frames:
			if msg.Event != wantEvent {
				t.Errorf("event = %q, want %q", msg.Event, wantEvent)
			}
			if wantEvent == EventMarkAsRead {
				var p markAsReadPayload
				if err := json.Unmarshal(msg.Data, &p); err != nil || p.NotificationID != "n9" {
					t.Errorf("payload = %s, want notificationId n9", msg.Data)
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", wantEvent)
		}
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	var conns atomic.Int32
	srv := wsServer(t, func(conn *websocket.Conn) {
		if conns.Add(1) == 1 {
			// Drop the first connection immediately to force a reconnect.
			return
		}
		waitClose(conn)
	})

	store := notification.NewStore()
	ch, err := NewChannel(srv.URL, "tok", store, WithReconnect(5, 10*time.Millisecond))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	eventually(t, 2*time.Second, func() bool {
		return conns.Load() >= 2 && store.Connected()
	}, "channel never reconnected after drop")
}

func TestWriteFailureReconnectsPromptly(t *testing.T) {
	var conns atomic.Int32
	srv := wsServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		waitClose(conn)
	})

	store := notification.NewStore()
	ch, err := NewChannel(srv.URL, "tok", store, WithReconnect(5, 10*time.Millisecond))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()
	defer ch.Close()

	eventually(t, 2*time.Second, store.Connected, "channel never connected")

	// A frame the writer cannot serialize fails the write while the peer
	// stays healthy; the reader must be unblocked right away instead of
	// sitting out the pong deadline.
	ch.emit("diagnostic", make(chan int))

	eventually(t, 2*time.Second, func() bool {
		return conns.Load() >= 2 && store.Connected()
	}, "channel never reconnected after write failure")
}

func TestBoundedReconnectGivesUp(t *testing.T) {
	// No server at all: every dial fails.
	store := notification.NewStore()
	store.SetConnectionStatus(true)

	ch, err := NewChannel("http://127.0.0.1:1", "tok", store, WithReconnect(2, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()

	eventually(t, 2*time.Second, func() bool {
		return !store.Connected()
	}, "channel never settled disconnected")
	ch.Close()
}

func TestCloseCancelsPendingReconnects(t *testing.T) {
	store := notification.NewStore()
	ch, err := NewChannel("http://127.0.0.1:1", "tok", store, WithReconnect(1000, time.Hour))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	ch.Open()

	// The first dial fails fast and the loop parks on its hour-long
	// delay; Close must cancel it promptly.
	done := make(chan struct{})
	go func() {
		ch.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not cancel the pending reconnect")
	}
	if store.Connected() {
		t.Error("expected disconnected after close")
	}
}
