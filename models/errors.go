// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidOption  = errors.New("invalid option")
	ErrPollExpired    = errors.New("poll has expired")
	ErrNotPermitted   = errors.New("not permitted")
	ErrDuplicateUser  = errors.New("user already allowed")
	ErrUnknownUser    = errors.New("no registered user with that email")
	ErrEmptyAllowlist = errors.New("restricted polls must have at least one allowed user")
	ErrNetworkFailure = errors.New("poll service request failed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidDraft   = errors.New("invalid poll draft")
)

// DraftError lists every field that failed validation. It unwraps to
// ErrInvalidDraft, and also to ErrEmptyAllowlist when the allowlist is empty.
type DraftError struct {
	Fields map[string]string
}

func (e *DraftError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid poll draft: " + strings.Join(parts, "; ")
}

func (e *DraftError) Unwrap() []error {
	errs := []error{ErrInvalidDraft}
	if _, ok := e.Fields["allowed_users"]; ok {
		errs = append(errs, ErrEmptyAllowlist)
	}
	return errs
}
