// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielhkuo/vote-x/access"
	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/models"
)

// Session derives the current viewer from the token store. Call Reload at
// session start and whenever the store may have changed outside this
// process (see Watcher).
type Session struct {
	tokens *Tokens

	mu      sync.RWMutex
	viewer  access.Viewer
	profile *models.Profile
}

func NewSession(tokens *Tokens) *Session {
	return &Session{tokens: tokens}
}

func (s *Session) Tokens() *Tokens {
	return s.tokens
}

// Reload re-reads the token store. The viewer is authenticated iff an
// access token is stored.
func (s *Session) Reload() error {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	email, err := s.tokens.Email()
	if err != nil {
		return fmt.Errorf("failed to read voter email: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	authenticated := token != ""
	if !authenticated {
		s.profile = nil
	}
	s.viewer.Authenticated = authenticated
	s.viewer.Email = allowlist.Normalize(email)
	if s.profile != nil {
		s.viewer.ID = s.profile.ID
		s.viewer.Username = s.profile.Username
	} else {
		s.viewer.ID = 0
		s.viewer.Username = ""
	}

	slog.Debug("session reloaded", "authenticated", authenticated, "email", email)
	return nil
}

// SetProfile records the profile returned by the service for the current
// token and stores its email as the voter email.
func (s *Session) SetProfile(p models.Profile) error {
	p.Email = allowlist.Normalize(p.Email)
	if p.Email != "" {
		if err := s.tokens.SetEmail(p.Email); err != nil {
			return fmt.Errorf("failed to store voter email: %w", err)
		}
	}

	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return s.Reload()
}

// Viewer returns the current viewer.
func (s *Session) Viewer() access.Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

// Logout clears the tokens and forgets the profile. The voter email is
// kept, as a best-effort hint.
func (s *Session) Logout() error {
	if err := s.tokens.Clear(); err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
	return s.Reload()
}
