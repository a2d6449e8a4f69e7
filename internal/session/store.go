// Package session holds the single source of truth for the current
// authenticated session: token pair, user profile, and authentication flag.
// All mutation goes through the Store's methods; other components read
// tokens synchronously through its accessors.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tmorehouse/dashterm/internal/credential"
	"github.com/tmorehouse/dashterm/internal/model"
)

// Store owns the session state. Persisted tokens survive process restarts
// through the credential store and are loaded back by Rehydrate.
type Store struct {
	mu sync.Mutex

	accessToken  string
	refreshToken string
	user         *model.User
	hydrated     bool

	creds      credential.Store
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTokenTTLs overrides the persistence lifetimes for the access and
// refresh tokens.
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(s *Store) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// New creates a session store persisting through creds. Defaults match the
// backend's cookie lifetimes: access token 7 days, refresh token 30 days.
func New(creds credential.Store, opts ...Option) *Store {
	s := &Store{
		creds:      creds,
		accessTTL:  7 * 24 * time.Hour,
		refreshTTL: 30 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login installs a freshly issued token pair and user, persists both tokens
// with their independent lifetimes, and marks the session authenticated.
func (s *Store) Login(tokens model.AuthTokens, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.Set(credential.KeyAccessToken, tokens.AccessToken, s.accessTTL); err != nil {
		return err
	}
	if err := s.creds.Set(credential.KeyRefreshToken, tokens.RefreshToken, s.refreshTTL); err != nil {
		return err
	}
	if user != nil {
		if data, err := json.Marshal(user); err == nil {
			// Cached profile shares the refresh token's lifetime.
			_ = s.creds.Set(credential.KeyUser, string(data), s.refreshTTL)
		}
	}

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.user = user
	s.hydrated = true
	return nil
}

// Logout clears the in-memory session and removes the persisted entries.
// It is idempotent: logging out an already logged-out session is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.creds.Delete(credential.KeyAccessToken)
	_ = s.creds.Delete(credential.KeyRefreshToken)
	_ = s.creds.Delete(credential.KeyUser)

	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
}

// Auth is a merge-style partial update applied by SetAuth. Nil fields are
// left unchanged.
type Auth struct {
	AccessToken *string
	User        *model.User
}

// SetAuth merges the given fields into the session. It is used by the
// refresh flow to install a new access token without touching the refresh
// token; the new token is persisted so a reload picks it up. The
// authentication flag is always derived from the resulting access token.
func (s *Store) SetAuth(auth Auth) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if auth.AccessToken != nil {
		s.accessToken = *auth.AccessToken
		if s.accessToken != "" {
			_ = s.creds.Set(credential.KeyAccessToken, s.accessToken, s.accessTTL)
		} else {
			_ = s.creds.Delete(credential.KeyAccessToken)
		}
	}
	if auth.User != nil {
		s.user = auth.User
	}
}

// Rehydrate loads persisted credentials into memory. It must run before any
// component reads the store and is safe to call repeatedly: after the first
// successful load it is a no-op for the rest of the process lifetime.
func (s *Store) Rehydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return nil
	}

	access, err := s.creds.Get(credential.KeyAccessToken)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return err
	}
	refresh, err := s.creds.Get(credential.KeyRefreshToken)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		return err
	}

	var user *model.User
	if raw, err := s.creds.Get(credential.KeyUser); err == nil {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			user = &u
		}
	}

	s.accessToken = access
	s.refreshToken = refresh
	s.user = user
	s.hydrated = true
	return nil
}

// AccessToken returns the current access token, or "" when absent.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, or "" when absent.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// User returns the cached user profile, or nil when absent.
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated reports whether a non-empty access token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken != ""
}
