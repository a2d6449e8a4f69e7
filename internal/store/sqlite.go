package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tmorehouse/dashterm/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// notificationRow is the database shape of a cached notification.
type notificationRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Type      string    `db:"type"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
	Metadata  string    `db:"metadata"`
}

// toRow converts a model notification for storage.
func toRow(n model.Notification) (notificationRow, error) {
	meta := "{}"
	if len(n.Metadata) > 0 {
		data, err := json.Marshal(n.Metadata)
		if err != nil {
			return notificationRow{}, fmt.Errorf("marshaling metadata for %s: %w", n.ID, err)
		}
		meta = string(data)
	}
	return notificationRow{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.Read,
		CreatedAt: n.CreatedAt.UTC(),
		Metadata:  meta,
	}, nil
}

// toModel converts a stored row back into a model notification.
func (r notificationRow) toModel() model.Notification {
	n := model.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      model.NotificationType(r.Type),
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt,
	}
	if r.Metadata != "" && r.Metadata != "{}" {
		var meta map[string]string
		if json.Unmarshal([]byte(r.Metadata), &meta) == nil {
			n.Metadata = meta
		}
	}
	return n
}

const upsertQuery = `
	INSERT OR REPLACE INTO notifications (
		id, title, message, type, is_read, created_at, metadata
	) VALUES (
		:id, :title, :message, :type, :is_read, :created_at, :metadata
	)`

// ReplaceNotifications swaps the cached feed for the given snapshot
// within a single transaction.
func (s *SQLiteStore) ReplaceNotifications(ctx context.Context, list []model.Notification) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notification cache: %w", err)
	}

	for _, n := range list {
		row, err := toRow(n)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuery, row); err != nil {
			return fmt.Errorf("caching notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notification cache: %w", err)
	}
	return nil
}

// UpsertNotification inserts or updates a single cached notification.
func (s *SQLiteStore) UpsertNotification(ctx context.Context, n model.Notification) error {
	row, err := toRow(n)
	if err != nil {
		return err
	}
	if _, err := s.db.NamedExecContext(ctx, upsertQuery, row); err != nil {
		return fmt.Errorf("caching notification %s: %w", n.ID, err)
	}
	return nil
}

// GetNotifications returns the cached feed, newest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context) ([]model.Notification, error) {
	var rows []notificationRow
	err := s.db.SelectContext(
		ctx, &rows,
		"SELECT * FROM notifications ORDER BY created_at DESC",
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading notification cache: %w", err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// MarkNotificationRead flags one cached notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ?",
		id,
	)
	if err != nil {
		return fmt.Errorf("marking cached notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead flags every cached notification as read.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1")
	if err != nil {
		return fmt.Errorf("marking cached notifications read: %w", err)
	}
	return nil
}

// DeleteNotification removes one cached notification.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting cached notification %s: %w", id, err)
	}
	return nil
}
