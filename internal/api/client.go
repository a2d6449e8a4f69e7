// Package api provides the authenticated HTTP client for the dashboard
// backend. Every request carries the current access token and tenant
// context; an expired token is recovered transparently through a
// single-flight refresh shared by all concurrent callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tmorehouse/dashterm/internal/model"
	"github.com/tmorehouse/dashterm/internal/session"
)

// headerOrganization carries the active tenant context.
const headerOrganization = "X-Organization-Id"

// refreshCookie is the durable transport the refresh endpoint reads the
// refresh token from; it never travels in the Authorization header.
const refreshCookie = "refreshToken"

// Client is the authenticated HTTP client. All endpoint services share one
// Client so they share its session, tenant context, and refresh coordinator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
	log        *logrus.Logger

	orgMu sync.Mutex
	orgID string

	// refreshMu guards refresh. A non-nil refresh is the single in-flight
	// refresh call; requests that 401 while it is pending park on it and
	// retry with whatever token it produces.
	refreshMu sync.Mutex
	refresh   *refreshCall
}

// refreshCall is one in-flight token refresh. done is closed once the call
// settles; token and err are valid only after that.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger substitutes the client's logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithOrganizationID sets the initial tenant context.
func WithOrganizationID(orgID string) Option {
	return func(c *Client) { c.orgID = orgID }
}

// NewClient creates an authenticated client for the API rooted at baseURL,
// reading and installing tokens through sess.
func NewClient(baseURL string, sess *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOrganizationID switches the active tenant context for subsequent
// requests. An empty id clears it.
func (c *Client) SetOrganizationID(orgID string) {
	c.orgMu.Lock()
	defer c.orgMu.Unlock()
	c.orgID = orgID
}

// organizationID returns the active tenant context, or "".
func (c *Client) organizationID() string {
	c.orgMu.Lock()
	defer c.orgMu.Unlock()
	return c.orgID
}

// Get performs an HTTP GET request and decodes the enveloped response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Patch performs an HTTP PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do is the core request method. On a 401 for anything but the login call
// it refreshes the access token (joining an in-flight refresh when one is
// pending) and replays the request once with the new token.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	token := c.session.AccessToken()
	retried := false

	for {
		status, respBody, err := c.send(ctx, method, path, payload, token)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		if status == http.StatusUnauthorized && !retried && !strings.HasPrefix(path, "/auth/login") {
			retried = true

			newToken, refreshErr := c.RefreshAccessToken(ctx)
			if refreshErr != nil {
				return fmt.Errorf("refreshing session for %s %s: %w", method, path, refreshErr)
			}

			token = newToken
			continue
		}

		return decodeEnvelope(status, respBody, result)
	}
}

// send issues a single HTTP request and returns the status and raw body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if orgID := c.organizationID(); orgID != "" {
		req.Header.Set(headerOrganization, orgID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("api request")

	return resp.StatusCode, respBody, nil
}

// RefreshAccessToken obtains a fresh access token, installing it into the
// session store. At most one refresh call is in flight at any time: the
// first caller becomes the leader and performs the call, later callers
// park until it settles and share its outcome.
func (c *Client) RefreshAccessToken(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	if call := c.refresh; call != nil {
		c.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	c.refresh = call
	c.refreshMu.Unlock()

	call.token, call.err = c.doRefresh(ctx)

	// Reset the coordinator before waking the parked requests so a
	// late 401 starts a new cycle instead of joining a settled one.
	c.refreshMu.Lock()
	c.refresh = nil
	c.refreshMu.Unlock()
	close(call.done)

	return call.token, call.err
}

// doRefresh calls the refresh endpoint. The refresh token travels as a
// durable cookie. A definitive 400/401 rejection logs the session out;
// network failures and server errors leave it intact so the user can retry.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if refreshToken := c.session.RefreshToken(); refreshToken != "" {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: refreshToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("token refresh unreachable, session preserved")
		return "", fmt.Errorf("refresh call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		c.log.WithField("status", resp.StatusCode).Warn("refresh token rejected, logging out")
		c.session.Logout()
		return "", &Error{Status: resp.StatusCode, Message: "refresh token rejected"}
	}

	var tokens model.AuthTokens
	if err := decodeEnvelope(resp.StatusCode, respBody, &tokens); err != nil {
		return "", fmt.Errorf("refresh call failed: %w", err)
	}
	if tokens.AccessToken == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}

	c.session.SetAuth(session.Auth{AccessToken: &tokens.AccessToken})
	c.log.Debug("access token refreshed")

	return tokens.AccessToken, nil
}
