// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pollapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/models"
)

func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResponse, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, c.url("auth", "login"),
		models.LoginRequest{Email: email, Password: password}, &resp)
	return resp, err
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.Profile, error) {
	var resp models.Profile
	err := c.do(ctx, http.MethodPost, c.url("auth", "register"), req, &resp)
	return resp, err
}

func (c *Client) RefreshToken(ctx context.Context, refresh string) (models.RefreshResponse, error) {
	var resp models.RefreshResponse
	err := c.do(ctx, http.MethodPost, c.url("auth", "token", "refresh"),
		models.RefreshRequest{Refresh: refresh}, &resp)
	return resp, err
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var resp models.Profile
	err := c.do(ctx, http.MethodGet, c.url("auth", "profile"), nil, &resp)
	return resp, err
}

// Authenticator ties the auth endpoints to a Session's token store.
type Authenticator struct {
	Client  *Client
	Session *auth.Session
}

// Login stores the issued token pair, records the login email as the voter
// email, and loads the profile.
func (a *Authenticator) Login(ctx context.Context, email, password string) (models.Profile, error) {
	email = allowlist.Normalize(email)
	pair, err := a.Client.Login(ctx, email, password)
	if err != nil {
		return models.Profile{}, fmt.Errorf("login failed: %w", err)
	}

	tokens := a.Session.Tokens()
	if err := tokens.Save(auth.TokenPair{Access: pair.Access, Refresh: pair.Refresh}); err != nil {
		return models.Profile{}, err
	}
	if err := tokens.SetEmail(email); err != nil {
		return models.Profile{}, fmt.Errorf("failed to store voter email: %w", err)
	}

	profile, err := a.LoadProfile(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	slog.Info("logged in", "user_id", profile.ID, "email", profile.Email)
	return profile, nil
}

// LoadProfile fetches the profile for the stored token and installs it in
// the session.
func (a *Authenticator) LoadProfile(ctx context.Context) (models.Profile, error) {
	profile, err := a.Client.Profile(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if err := a.Session.SetProfile(profile); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// Refresh obtains a new access token. If the refresh is rejected both
// tokens are cleared and the session becomes anonymous.
func (a *Authenticator) Refresh(ctx context.Context) error {
	tokens := a.Session.Tokens()
	refresh, err := tokens.RefreshToken()
	if err != nil {
		return err
	}

	resp, err := a.Client.RefreshToken(ctx, refresh)
	if err != nil {
		slog.Warn("token refresh failed, clearing tokens", "error", err)
		if clearErr := a.Session.Logout(); clearErr != nil {
			return clearErr
		}
		return fmt.Errorf("token refresh failed: %w", err)
	}

	if err := tokens.SetAccess(resp.Access); err != nil {
		return err
	}
	return a.Session.Reload()
}

// Logout clears the stored tokens.
func (a *Authenticator) Logout() error {
	return a.Session.Logout()
}
