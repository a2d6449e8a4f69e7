package api

import (
	"context"

	"github.com/tmorehouse/dashterm/internal/model"
)

// AuthService wraps the `/auth` and `/users/me` endpoints.
type AuthService struct {
	client *Client
}

// NewAuthService creates an AuthService on top of client.
func NewAuthService(client *Client) *AuthService {
	return &AuthService{client: client}
}

// loginPayload is the request body for `POST /auth/login`.
type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password and returns the issued
// token pair. A 401 from this endpoint is returned as-is: the refresh
// flow never runs for the login call itself.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var out model.LoginResponse
	err := s.client.Post(ctx, "/auth/login", loginPayload{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and returns its initial token pair.
func (s *AuthService) Register(ctx context.Context, payload model.RegisterPayload) (*model.RegisterResponse, error) {
	var out model.RegisterResponse
	if err := s.client.Post(ctx, "/auth/register", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the current user's profile.
func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := s.client.Get(ctx, "/users/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe applies a partial profile update and returns the result.
func (s *AuthService) UpdateMe(ctx context.Context, payload model.UpdateUserPayload) (*model.User, error) {
	var out model.User
	if err := s.client.Patch(ctx, "/users/me", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePassword changes the account password.
func (s *AuthService) UpdatePassword(ctx context.Context, payload model.ChangePasswordPayload) error {
	return s.client.Patch(ctx, "/auth/password", payload, nil)
}

// Refresh forces a token refresh through the client's single-flight
// coordinator and returns the new access token.
func (s *AuthService) Refresh(ctx context.Context) (string, error) {
	return s.client.RefreshAccessToken(ctx)
}
