package api

import (
	"context"
	"fmt"

	"github.com/tmorehouse/dashterm/internal/model"
)

// NotificationService wraps the `/notifications` endpoints.
type NotificationService struct {
	client *Client
}

// NewNotificationService creates a NotificationService on top of client.
func NewNotificationService(client *Client) *NotificationService {
	return &NotificationService{client: client}
}

// listResponse is the data payload of `GET /notifications`.
type listResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int                  `json:"total"`
}

// unreadCountResponse is the data payload of `GET /notifications/unread-count`.
type unreadCountResponse struct {
	Count int `json:"count"`
}

// List fetches the current notification snapshot, newest first, along with
// the server-side total.
func (s *NotificationService) List(ctx context.Context) ([]model.Notification, int, error) {
	var out listResponse
	if err := s.client.Get(ctx, "/notifications", &out); err != nil {
		return nil, 0, err
	}
	return out.Notifications, out.Total, nil
}

// UnreadCount fetches the authoritative unread counter.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	var out unreadCountResponse
	if err := s.client.Get(ctx, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead confirms a single notification as read server-side.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.client.Patch(ctx, fmt.Sprintf("/notifications/%s/read", id), nil, nil)
}

// MarkAllRead confirms every notification as read server-side.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.client.Patch(ctx, "/notifications/read-all", nil, nil)
}

// Delete removes a notification server-side.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, fmt.Sprintf("/notifications/%s", id))
}
