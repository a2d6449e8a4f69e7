// Package sync composes the session, REST client, notification store,
// realtime channel, and local cache into the feed the UI consumes: one
// snapshot fetch on start, live updates over the channel, optimistic
// mark-read mutations, and best-effort cache persistence.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tmorehouse/dashterm/internal/api"
	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/notification"
	"github.com/tmorehouse/dashterm/internal/realtime"
	"github.com/tmorehouse/dashterm/internal/store"
)

// Service is the notification synchronization service. One Service instance
// lives per process; each authenticated session is one Start/Stop cycle,
// because the channel's token is connection-scoped.
type Service struct {
	notifications *api.NotificationService
	store         *notification.Store
	cache         store.Store
	log           *logrus.Logger
	socketURL     string

	reconnectAttempts int
	reconnectDelay    time.Duration
	onAlert           func(model.Notification)

	mu      gosync.Mutex
	channel *realtime.Channel
	events  <-chan notification.Event
	stop    chan struct{}
	wg      gosync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithLogger substitutes the service's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithCache attaches a local notification cache for warm starts and
// read-state persistence. Cache failures are logged, never surfaced.
func WithCache(cache store.Store) Option {
	return func(s *Service) { s.cache = cache }
}

// WithReconnect overrides the channel's bounded-retry policy.
func WithReconnect(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.reconnectAttempts = attempts
		s.reconnectDelay = delay
	}
}

// WithAlertFunc registers a callback for newly pushed notifications,
// invoked after the store mutation (the transient user-facing alert).
func WithAlertFunc(fn func(model.Notification)) Option {
	return func(s *Service) { s.onAlert = fn }
}

// New creates a synchronization service. socketURL is the realtime endpoint
// root; notifications and st are shared with the rest of the application.
func New(notifications *api.NotificationService, st *notification.Store, socketURL string, opts ...Option) *Service {
	s := &Service{
		notifications:     notifications,
		store:             st,
		socketURL:         socketURL,
		log:               logrus.StandardLogger(),
		reconnectAttempts: 5,
		reconnectDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start brings the feed up for the session identified by accessToken:
// warm-start from the cache, fetch the REST snapshot and unread count,
// then open the realtime channel. With an empty token nothing happens and
// the connection flag stays false until a token reappears.
func (s *Service) Start(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		s.store.SetConnectionStatus(false)
		return nil
	}

	s.mu.Lock()
	if s.channel != nil || s.stop != nil {
		s.mu.Unlock()
		return fmt.Errorf("sync service already started")
	}

	s.stop = make(chan struct{})
	s.events = s.store.Subscribe()
	s.wg.Add(1)
	go s.persistLoop(s.events, s.stop)
	s.mu.Unlock()

	// Warm start: render the cached feed immediately; the snapshot below
	// replaces it once the server answers.
	if s.cache != nil {
		if cached, err := s.cache.GetNotifications(ctx); err != nil {
			s.log.WithError(err).Warn("notification cache read failed")
		} else if len(cached) > 0 {
			s.store.SetAll(cached)
		}
	}

	list, _, err := s.notifications.List(ctx)
	if err != nil {
		s.log.WithError(err).Warn("notification snapshot fetch failed")
	} else {
		s.store.SetAll(list)
		if s.cache != nil {
			if err := s.cache.ReplaceNotifications(ctx, list); err != nil {
				s.log.WithError(err).Warn("notification cache write failed")
			}
		}
	}

	if count, err := s.notifications.UnreadCount(ctx); err != nil {
		s.log.WithError(err).Warn("unread count fetch failed")
	} else {
		s.store.SetUnreadCount(count)
	}

	ch, err := realtime.NewChannel(
		s.socketURL, accessToken, s.store,
		realtime.WithLogger(s.log),
		realtime.WithReconnect(s.reconnectAttempts, s.reconnectDelay),
		realtime.WithAlertFunc(s.onAlert),
	)
	if err != nil {
		s.stopPersist()
		return fmt.Errorf("opening notification channel: %w", err)
	}

	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
	ch.Open()

	return nil
}

// Stop tears the session's feed down: the channel is closed, pending
// reconnects cancelled, and cache persistence stopped. Safe to call when
// not started.
func (s *Service) Stop() {
	s.mu.Lock()
	ch := s.channel
	s.channel = nil
	s.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	s.stopPersist()
	// Drain any in-flight REST confirmations.
	s.wg.Wait()
}

// stopPersist shuts the persistence loop down and detaches its subscription.
func (s *Service) stopPersist() {
	s.mu.Lock()
	stop := s.stop
	events := s.events
	s.stop = nil
	s.events = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	s.wg.Wait()
	s.store.Unsubscribe(events)
}

// persistLoop mirrors store mutations into the local cache.
func (s *Service) persistLoop(events <-chan notification.Event, stop chan struct{}) {
	defer s.wg.Done()

	if s.cache == nil {
		<-stop
		return
	}

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.persist(ev)
		}
	}
}

// persist applies one store event to the cache, best-effort.
func (s *Service) persist(ev notification.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch ev.Kind {
	case notification.EventAdded:
		if ev.Notification != nil {
			err = s.cache.UpsertNotification(ctx, *ev.Notification)
		}
	case notification.EventRead:
		err = s.cache.MarkNotificationRead(ctx, ev.ID)
	case notification.EventAllRead:
		err = s.cache.MarkAllNotificationsRead(ctx)
	}
	if err != nil {
		s.log.WithError(err).Warn("notification cache update failed")
	}
}

// MarkAsRead marks a notification read: optimistic local mutation first,
// then a fire-and-forget intent over the channel plus a best-effort REST
// confirmation. Local state is not rolled back if the server never confirms.
func (s *Service) MarkAsRead(id string) {
	s.store.MarkRead(id)

	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch != nil {
		ch.MarkAsRead(id)
	}

	s.confirm("mark-read confirmation", func(ctx context.Context) error {
		return s.notifications.MarkRead(ctx, id)
	})
}

// MarkAllAsRead marks the whole feed read with the same contract as
// MarkAsRead.
func (s *Service) MarkAllAsRead() {
	s.store.MarkAllRead()

	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch != nil {
		ch.MarkAllRead()
	}

	s.confirm("mark-all-read confirmation", func(ctx context.Context) error {
		return s.notifications.MarkAllRead(ctx)
	})
}

// confirm runs a REST confirmation in the background. Failures are logged,
// never surfaced; the channel intent and the next snapshot reconcile.
func (s *Service) confirm(what string, call func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := call(ctx); err != nil {
			s.log.WithError(err).Warnf("%s failed", what)
		}
	}()
}

// Notifications returns the current feed, newest first.
func (s *Service) Notifications() []model.Notification {
	return s.store.Notifications()
}

// UnreadCount returns the current unread counter.
func (s *Service) UnreadCount() int {
	return s.store.UnreadCount()
}

// Connected reports whether the realtime channel is live.
func (s *Service) Connected() bool {
	return s.store.Connected()
}

// Events exposes the store's event stream for UI consumers.
func (s *Service) Events() <-chan notification.Event {
	return s.store.Subscribe()
}
