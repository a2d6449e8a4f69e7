package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/tmorehouse/dashterm/internal/api"
	"github.com/tmorehouse/dashterm/internal/app"
	"github.com/tmorehouse/dashterm/internal/credential"
	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
	"github.com/tmorehouse/dashterm/internal/session"
	"github.com/tmorehouse/dashterm/internal/store"
	appsync "github.com/tmorehouse/dashterm/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashterm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	creds := credential.NewKeyringStore()
	sess := session.New(creds, session.WithTokenTTLs(
		time.Duration(cfg.Session.AccessTokenTTLDays)*24*time.Hour,
		time.Duration(cfg.Session.RefreshTokenTTLDays)*24*time.Hour,
	))
	if err := sess.Rehydrate(); err != nil {
		log.WithError(err).Warn("session rehydration failed, starting logged out")
	}

	client := api.NewClient(
		cfg.Server.BaseURL, sess,
		api.WithLogger(log),
		api.WithOrganizationID(cfg.Server.OrganizationID),
	)
	authSvc := api.NewAuthService(client)
	notifSvc := api.NewNotificationService(client)

	notifStore := notification.NewStore()

	syncOpts := []appsync.Option{
		appsync.WithLogger(log),
		appsync.WithReconnect(
			cfg.Realtime.ReconnectAttempts,
			time.Duration(cfg.Realtime.ReconnectDelayMS)*time.Millisecond,
		),
	}

	// The cache is best-effort: without it the feed still works, it just
	// starts cold.
	if cache, err := openCache(cfg.DatabasePath); err != nil {
		log.WithError(err).Warn("notification cache unavailable")
	} else {
		defer cache.Close()
		syncOpts = append(syncOpts, appsync.WithCache(cache))
	}

	syncSvc := appsync.New(notifSvc, notifStore, socketURL(cfg), syncOpts...)
	defer syncSvc.Stop()

	program := tea.NewProgram(
		app.New(sess, authSvc, syncSvc),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// newLogger writes structured logs to a file so they never corrupt the
// terminal UI.
func newLogger(cfg *model.AppConfig) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	log.SetOutput(os.Stderr)

	logPath := filepath.Join(filepath.Dir(cfg.DatabasePath), "dashterm.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err == nil {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			log.SetOutput(f)
		}
	}
	return log
}

// openCache opens the local notification cache, creating its directory
// when missing.
func openCache(path string) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return store.NewSQLiteStore(path)
}

// socketURL derives the realtime endpoint root from the configuration:
// the explicit socket URL when set, otherwise the API base URL with its
// path prefix stripped, mirroring how the web client derived it.
func socketURL(cfg *model.AppConfig) string {
	if cfg.Server.SocketURL != "" {
		return cfg.Server.SocketURL
	}
	base := cfg.Server.BaseURL
	if i := strings.Index(base, "/api"); i > 0 {
		return base[:i]
	}
	return base
}
