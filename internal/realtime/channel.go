// Package realtime maintains the live notification channel: one WebSocket
// connection per authenticated session, translating pushed events into
// notification store mutations and carrying outgoing mark-read intents.
package realtime

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Channel is one live notification connection. The access token is fixed at
// construction: a token change means tearing this channel down and opening a
// new one, never swapping credentials on a live connection.
type Channel struct {
	wsURL   string
	store   *notification.Store
	log     *logrus.Logger
	onAlert func(model.Notification)

	reconnectAttempts int
	reconnectDelay    time.Duration
	dialer            *websocket.Dialer

	send   chan outboundFrame
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger substitutes the channel's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Channel) { c.log = log }
}

// WithReconnect overrides the bounded-retry policy.
func WithReconnect(attempts int, delay time.Duration) Option {
	return func(c *Channel) {
		c.reconnectAttempts = attempts
		c.reconnectDelay = delay
	}
}

// WithAlertFunc registers a callback invoked for each newly pushed
// notification, after it has been added to the store.
func WithAlertFunc(fn func(model.Notification)) Option {
	return func(c *Channel) { c.onAlert = fn }
}

// NewChannel creates a channel for the `/notifications` endpoint under
// socketURL, authenticated by token in the handshake query. Events are
// applied to store in transport delivery order.
func NewChannel(socketURL, token string, store *notification.Store, opts ...Option) (*Channel, error) {
	wsURL, err := buildURL(socketURL, token)
	if err != nil {
		return nil, err
	}

	c := &Channel{
		wsURL:             wsURL,
		store:             store,
		log:               logrus.StandardLogger(),
		reconnectAttempts: 5,
		reconnectDelay:    time.Second,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		send:   make(chan outboundFrame, 16),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// buildURL rewrites the HTTP scheme to its WebSocket counterpart and
// attaches the namespace path and token parameter.
func buildURL(socketURL, token string) (string, error) {
	u, err := url.Parse(socketURL)
	if err != nil {
		return "", fmt.Errorf("parsing socket url %q: %w", socketURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported socket scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/notifications"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open starts the connection loop. Connecting, reconnecting, and event
// dispatch all happen on background goroutines; the store's connection
// flag reflects progress. Open never blocks on the network.
func (c *Channel) Open() {
	c.wg.Add(1)
	go c.run()
}

// Close tears the channel down: the connection is closed, pending reconnect
// attempts are cancelled, and buffered outbound intents are discarded.
// Safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() {
		close(c.closed)
	})
	c.wg.Wait()
	c.store.SetConnectionStatus(false)
}

// MarkAsRead emits a fire-and-forget mark-as-read intent. The optimistic
// local mutation has already happened by the time this is called; a dropped
// frame is not retried.
func (c *Channel) MarkAsRead(id string) {
	c.emit(EventMarkAsRead, markAsReadPayload{NotificationID: id})
}

// MarkAllRead emits a fire-and-forget mark-all-read intent.
func (c *Channel) MarkAllRead() {
	c.emit(EventMarkAllRead, nil)
}

// emit queues an outbound frame without blocking. Frames are dropped when
// the channel is disconnected or the buffer is full.
func (c *Channel) emit(event string, data any) {
	if !c.store.Connected() {
		c.log.WithField("event", event).Debug("channel disconnected, dropping intent")
		return
	}
	select {
	case c.send <- outboundFrame{Event: event, Data: data}:
	case <-c.closed:
	default:
		c.log.WithField("event", event).Debug("send buffer full, dropping intent")
	}
}

// run owns the connection lifecycle: dial, pump, and bounded reconnect with
// a fixed delay. The attempt counter resets after every successful connect.
func (c *Channel) run() {
	defer c.wg.Done()

	attempts := 0
	for {
		select {
		case <-c.closed:
			return
		default:
		}

		conn, _, err := c.dialer.Dial(c.wsURL, nil)
		if err != nil {
			attempts++
			c.log.WithError(err).WithField("attempt", attempts).Warn("notification channel connect failed")
			if attempts >= c.reconnectAttempts {
				c.log.Warn("notification channel reconnect attempts exhausted")
				c.store.SetConnectionStatus(false)
				return
			}
			select {
			case <-c.closed:
				return
			case <-time.After(c.reconnectDelay):
			}
			continue
		}

		attempts = 0
		c.store.SetConnectionStatus(true)
		c.log.Debug("notification channel connected")

		done := make(chan struct{})
		c.wg.Add(1)
		go c.writePump(conn, done)

		c.readPump(conn)
		close(done)
		conn.Close()
		c.store.SetConnectionStatus(false)

		select {
		case <-c.closed:
			return
		default:
			attempts++
			if attempts >= c.reconnectAttempts {
				c.log.Warn("notification channel reconnect attempts exhausted")
				return
			}
			select {
			case <-c.closed:
				return
			case <-time.After(c.reconnectDelay):
			}
		}
	}
}

// readPump reads frames until the connection fails or the channel closes,
// dispatching each event to the notification store.
func (c *Channel) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				select {
				case <-c.closed:
				default:
					c.log.WithError(err).Warn("notification channel read error")
				}
			}
			return
		}

		var msg frame
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.WithError(err).Warn("invalid frame on notification channel")
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch applies one inbound event to the store.
func (c *Channel) dispatch(msg frame) {
	switch msg.Event {
	case EventNewNotification:
		var n model.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			c.log.WithError(err).Warn("malformed new-notification payload")
			return
		}
		c.store.Add(n)
		if c.onAlert != nil {
			c.onAlert(n)
		}

	case EventUnreadCount:
		var p unreadCountPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.log.WithError(err).Warn("malformed unread-count payload")
			return
		}
		c.store.SetUnreadCount(p.Count)

	case EventNotificationRead:
		// Echo from another client of the same session; keeps tabs and
		// devices converged without a second mutating call.
		var p markAsReadPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			c.log.WithError(err).Warn("malformed notification-read payload")
			return
		}
		c.store.MarkRead(p.NotificationID)

	case EventAllNotificationsRead:
		c.store.MarkAllRead()

	default:
		c.log.WithField("event", msg.Event).Debug("ignoring unknown channel event")
	}
}

// writePump writes queued intents and keepalive pings until the connection's
// reader exits or the channel closes.
func (c *Channel) writePump(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-c.closed:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return

		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				c.log.WithError(err).Warn("notification channel write error")
				// Close the connection so the reader does not sit in
				// ReadMessage until the pong deadline expires.
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
