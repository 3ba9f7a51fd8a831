// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package allowlist

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/danielhkuo/vote-x/models"
)

// Lookuper checks whether an account exists for an email.
type Lookuper interface {
	LookupUser(ctx context.Context, email string) (models.LookupResponse, error)
}

// Normalize trims and lower-cases an email address.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Contains reports whether users already holds email, ignoring case.
func Contains(users []models.SimpleUser, email string) bool {
	email = Normalize(email)
	return slices.ContainsFunc(users, func(u models.SimpleUser) bool {
		return Normalize(u.Email) == email
	})
}

// Verify normalizes raw and confirms the account exists. It returns the
// normalized email.
func Verify(ctx context.Context, lookup Lookuper, raw string) (string, error) {
	email := Normalize(raw)
	if email == "" {
		return "", fmt.Errorf("email is required: %w", models.ErrUnknownUser)
	}

	res, err := lookup.LookupUser(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", email, err)
	}
	if !res.Exists {
		return "", fmt.Errorf("%s: %w", email, models.ErrUnknownUser)
	}
	return email, nil
}

// Draft is the allowlist of a poll that has not been created yet.
type Draft struct {
	emails []string
	lookup Lookuper
}

// NewDraft starts an empty allowlist. With a nil lookup, entries are only
// normalized and checked for duplicates; there are no accounts to verify.
func NewDraft(lookup Lookuper) *Draft {
	return &Draft{lookup: lookup}
}

// Add normalizes raw, rejects duplicates and unknown accounts, and appends
// it. The list is unchanged on error.
func (d *Draft) Add(ctx context.Context, raw string) error {
	email := Normalize(raw)
	if email == "" {
		return fmt.Errorf("email is required: %w", models.ErrUnknownUser)
	}
	if slices.Contains(d.emails, email) {
		return fmt.Errorf("%s: %w", email, models.ErrDuplicateUser)
	}

	if d.lookup != nil {
		verified, err := Verify(ctx, d.lookup, email)
		if err != nil {
			return err
		}
		email = verified
	}

	d.emails = append(d.emails, email)
	slog.Debug("allowed user added to draft", "email", email)
	return nil
}

// Remove drops email from the list. Removing an absent email is a no-op.
func (d *Draft) Remove(email string) {
	email = Normalize(email)
	d.emails = slices.DeleteFunc(d.emails, func(e string) bool { return e == email })
}

// Emails returns a copy of the list in insertion order.
func (d *Draft) Emails() []string {
	return slices.Clone(d.emails)
}

func (d *Draft) Len() int {
	return len(d.emails)
}
