package realtime

import "encoding/json"

// Server-to-client event names.
const (
	EventNewNotification      = "new-notification"
	EventUnreadCount          = "unread-count"
	EventNotificationRead     = "notification-read"
	EventAllNotificationsRead = "all-notifications-read"
)

// Client-to-server event names.
const (
	EventMarkAsRead  = "mark-as-read"
	EventMarkAllRead = "mark-all-read"
)

// frame is the wire format of an inbound event.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outboundFrame is the wire format of an outgoing intent.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// markAsReadPayload accompanies a mark-as-read intent and a
// notification-read echo.
type markAsReadPayload struct {
	NotificationID string `json:"notificationId"`
}

// unreadCountPayload accompanies an unread-count event.
type unreadCountPayload struct {
	Count int `json:"count"`
}
