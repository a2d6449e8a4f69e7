package model

import "time"

// NotificationType identifies the category of a notification.
type NotificationType string

const (
	NotificationTypeMembershipInvite NotificationType = "membership-invite"
	NotificationTypeTeamUpdate       NotificationType = "team-update"
	NotificationTypeSystem           NotificationType = "system"
)

// Notification represents a single entry in the user's notification feed,
// produced by the REST snapshot or pushed over the realtime channel.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Title is the short headline shown in the feed.
	Title string `json:"title"`

	// Message is the human-readable notification body.
	Message string `json:"message"`

	// Type identifies the notification category.
	Type NotificationType `json:"type"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"isRead"`

	// CreatedAt is when this notification was generated server-side.
	CreatedAt time.Time `json:"createdAt"`

	// Metadata holds notification-specific key-value data, such as the
	// action token carried by a membership invite.
	Metadata map[string]string `json:"metadata,omitempty"`
}
