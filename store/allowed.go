// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/models"
)

// managed takes the poll's slot and checks the viewer owns the poll. The
// caller must call unlock when err is nil.
func (s *Store) managed(ctx context.Context, pollID int64) (p models.Poll, unlock func(), err error) {
	unlock, err = s.lock(ctx, pollID)
	if err != nil {
		return models.Poll{}, nil, err
	}

	p, err = s.Get(pollID)
	if err == nil {
		err = s.eval.CheckManage(p, s.viewer())
	}
	if err != nil {
		unlock()
		return models.Poll{}, nil, err
	}
	return p, unlock, nil
}

// setAllowed replaces the cached allowlist of a poll that is still present.
func (s *Store) setAllowed(ctx context.Context, pollID int64, users []models.SimpleUser) ([]models.SimpleUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.getLocked(pollID)
	if !ok {
		return nil, fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	p = p.Clone()
	p.AllowedUsers = slices.Clone(users)
	s.putLocked(p)
	return slices.Clone(users), nil
}

// AllowedUsers loads the poll's allowlist from the service (owner only).
func (s *Store) AllowedUsers(ctx context.Context, pollID int64) ([]models.SimpleUser, error) {
	p, unlock, err := s.managed(ctx, pollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.svc == nil {
		return p.AllowedUsers, nil
	}

	users, err := s.svc.AllowedUsers(ctx, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed users for poll %d: %w", pollID, err)
	}
	return s.setAllowed(ctx, pollID, users)
}

// AddAllowedUser normalizes raw, rejects duplicates and unknown accounts,
// and adds it to the poll's allowlist. The cached list becomes the one the
// service returns.
func (s *Store) AddAllowedUser(ctx context.Context, pollID int64, raw string) ([]models.SimpleUser, error) {
	p, unlock, err := s.managed(ctx, pollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	email := allowlist.Normalize(raw)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", models.ErrUnknownUser)
	}
	if allowlist.Contains(p.AllowedUsers, email) {
		return nil, fmt.Errorf("%s: %w", email, models.ErrDuplicateUser)
	}

	if s.svc == nil {
		return s.setAllowed(ctx, pollID, append(p.AllowedUsers, models.SimpleUser{Email: email}))
	}

	if _, err := allowlist.Verify(ctx, s.svc, email); err != nil {
		return nil, err
	}
	users, err := s.svc.AddAllowedUser(ctx, pollID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s to poll %d: %w", email, pollID, err)
	}

	slog.Info("allowed user added", "poll_id", pollID, "email", email)
	return s.setAllowed(ctx, pollID, users)
}

// RemoveAllowedUser removes email from the poll's allowlist.
func (s *Store) RemoveAllowedUser(ctx context.Context, pollID int64, raw string) ([]models.SimpleUser, error) {
	p, unlock, err := s.managed(ctx, pollID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	email := allowlist.Normalize(raw)

	if s.svc == nil {
		users := slices.DeleteFunc(slices.Clone(p.AllowedUsers), func(u models.SimpleUser) bool {
			return allowlist.Normalize(u.Email) == email
		})
		return s.setAllowed(ctx, pollID, users)
	}

	users, err := s.svc.RemoveAllowedUser(ctx, pollID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to remove %s from poll %d: %w", email, pollID, err)
	}

	slog.Info("allowed user removed", "poll_id", pollID, "email", email)
	return s.setAllowed(ctx, pollID, users)
}

// draftAllowlist builds the allowlist of a poll being created.
func (s *Store) draftAllowlist(ctx context.Context, emails []string) ([]string, error) {
	var lookup allowlist.Lookuper
	if s.svc != nil {
		lookup = s.svc
	}
	d := allowlist.NewDraft(lookup)
	for _, e := range emails {
		if err := d.Add(ctx, e); err != nil {
			return nil, err
		}
	}
	return d.Emails(), nil
}
