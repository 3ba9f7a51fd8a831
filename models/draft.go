// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Draft limits
const (
	MinTitleLen       = 5
	MinDescriptionLen = 10
	MinOptions        = 2
	MaxOptions        = 10
	MaxOptionLen      = 100
)

// Durations offered when creating a poll, in days.
var Durations = map[string]int{
	"1 day":   1,
	"2 days":  2,
	"3 days":  3,
	"5 days":  5,
	"1 week":  7,
	"2 weeks": 14,
	"1 month": 30,
}

const DefaultDuration = "3 days"

// PollDraft is a poll as entered by its author, before the service has
// assigned ids.
type PollDraft struct {
	Title           string
	Description     string
	Category        string
	Duration        string
	Visibility      Visibility
	AllowGuestVotes bool
	Options         []string
	AllowedUsers    []string
}

// ExpiresAt converts the draft duration into an absolute time. Unknown
// durations mean the poll never expires.
func (d PollDraft) ExpiresAt(now time.Time) *time.Time {
	days, ok := Durations[d.Duration]
	if !ok {
		return nil
	}
	t := now.AddDate(0, 0, days).UTC()
	return &t
}

// Validate checks the draft. It never talks to the network, so a restricted
// poll with no allowed users fails here before any request is made.
func (d PollDraft) Validate() error {
	fields := make(map[string]string)

	title := strings.TrimSpace(d.Title)
	switch {
	case title == "":
		fields["title"] = "title is required"
	case utf8.RuneCountInString(title) < MinTitleLen:
		fields["title"] = "title must be at least 5 characters"
	}

	desc := strings.TrimSpace(d.Description)
	switch {
	case desc == "":
		fields["description"] = "description is required"
	case utf8.RuneCountInString(desc) < MinDescriptionLen:
		fields["description"] = "description must be at least 10 characters"
	}

	opts := d.CleanOptions()
	seen := make(map[string]bool, len(opts))
	switch {
	case len(opts) < MinOptions:
		fields["options"] = "at least 2 options are required"
	case len(opts) > MaxOptions:
		fields["options"] = "at most 10 options are allowed"
	}
	for _, o := range opts {
		if utf8.RuneCountInString(o) > MaxOptionLen {
			fields["options"] = "options must be at most 100 characters"
			break
		}
		key := strings.ToLower(o)
		if seen[key] {
			fields["options"] = "options must be unique"
			break
		}
		seen[key] = true
	}

	if !d.Visibility.Valid() {
		fields["visibility"] = "visibility must be one of: public, private, restricted"
	}
	if d.Visibility == VisibilityRestricted && len(d.CleanAllowedUsers()) == 0 {
		fields["allowed_users"] = ErrEmptyAllowlist.Error()
	}

	if len(fields) > 0 {
		return &DraftError{Fields: fields}
	}
	return nil
}

// CleanOptions returns the trimmed, non-blank options in order.
func (d PollDraft) CleanOptions() []string {
	out := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// CleanAllowedUsers returns the non-blank allowlist entries, trimmed and
// lower-cased, in order. Duplicates are kept; Store.Create rejects them.
func (d PollDraft) CleanAllowedUsers() []string {
	out := make([]string, 0, len(d.AllowedUsers))
	for _, e := range d.AllowedUsers {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Request builds the create-poll payload. Call Validate first.
func (d PollDraft) Request(now time.Time) CreatePollRequest {
	category := d.Category
	if category == "" {
		category = CategoryDefault
	}
	req := CreatePollRequest{
		Title:           strings.TrimSpace(d.Title),
		Description:     strings.TrimSpace(d.Description),
		Category:        category,
		ExpiresAt:       d.ExpiresAt(now),
		Visibility:      d.Visibility,
		AllowGuestVotes: d.AllowGuestVotes,
		Options:         d.CleanOptions(),
	}
	if d.Visibility == VisibilityRestricted {
		req.AllowedUsers = d.CleanAllowedUsers()
	}
	return req
}
