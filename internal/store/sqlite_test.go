package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/store"
	"github.com/tmorehouse/dashterm/tests/testutil"
)

func sample(id string, age time.Duration) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     "title " + id,
		Message:   "message " + id,
		Type:      model.NotificationTypeTeamUpdate,
		CreatedAt: time.Now().Add(-age).UTC().Truncate(time.Second),
	}
}

func TestReplaceAndGetNewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		sample("old", time.Hour),
		sample("new", 0),
		sample("mid", time.Minute),
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if got[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestReplaceDiscardsPreviousSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{sample("stale", time.Hour)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.ReplaceNotifications(ctx, []model.Notification{sample("fresh", 0)}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Errorf("got %+v, want only the fresh snapshot", got)
	}
}

func TestUpsertOverwritesExistingRow(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	n := sample("n1", time.Minute)
	if err := s.UpsertNotification(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n.Title = "edited"
	n.Read = true
	if err := s.UpsertNotification(ctx, n); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (upsert must not duplicate)", len(got))
	}
	if got[0].Title != "edited" || !got[0].Read {
		t.Errorf("got %+v, want the updated row", got[0])
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	n := sample("n1", 0)
	n.Metadata = map[string]string{"teamId": "t7", "inviterId": "u3"}
	if err := s.UpsertNotification(ctx, n); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0].Metadata["teamId"] != "t7" || got[0].Metadata["inviterId"] != "u3" {
		t.Errorf("metadata = %v, want round-tripped map", got[0].Metadata)
	}
}

func TestMarkReadVariants(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		sample("a", 0), sample("b", time.Minute), sample("c", time.Hour),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.MarkNotificationRead(ctx, "b"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, n := range got {
		if want := n.ID == "b"; n.Read != want {
			t.Errorf("notification %s read = %v, want %v", n.ID, n.Read, want)
		}
	}

	// Unknown ids are a no-op, matching the in-memory feed.
	if err := s.MarkNotificationRead(ctx, "missing"); err != nil {
		t.Fatalf("mark read unknown id: %v", err)
	}

	if err := s.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	got, err = s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, n := range got {
		if !n.Read {
			t.Errorf("notification %s still unread after mark-all", n.ID)
		}
	}
}

func TestDeleteNotification(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if err := s.ReplaceNotifications(ctx, []model.Notification{
		sample("keep", 0), sample("drop", time.Minute),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.DeleteNotification(ctx, "drop"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("got %+v, want only the kept row", got)
	}
}

func TestReopenKeepsDataAndMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.UpsertNotification(ctx, sample("n1", 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must re-run the migration check without error and keep
	// the cached rows.
	reopened, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetNotifications(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Errorf("got %+v, want the persisted row", got)
	}
}
