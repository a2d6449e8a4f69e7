package store

import (
	"context"

	"github.com/tmorehouse/dashterm/internal/model"
)

// Store defines the local persistence interface for the notification cache.
// The cache warm-starts the feed before the first REST snapshot lands and
// preserves read-state between runs; it is always best-effort and never the
// source of truth.
type Store interface {
	// ReplaceNotifications swaps the cached feed for the given snapshot.
	ReplaceNotifications(ctx context.Context, list []model.Notification) error

	// UpsertNotification inserts or updates a single cached notification.
	UpsertNotification(ctx context.Context, n model.Notification) error

	// GetNotifications returns the cached feed, newest first.
	GetNotifications(ctx context.Context) ([]model.Notification, error)

	// MarkNotificationRead flags one cached notification as read.
	MarkNotificationRead(ctx context.Context, id string) error

	// MarkAllNotificationsRead flags every cached notification as read.
	MarkAllNotificationsRead(ctx context.Context) error

	// DeleteNotification removes one cached notification.
	DeleteNotification(ctx context.Context, id string) error
}
