// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	EndsInNever = "No expiry"
	EndsInEnded = "Ended"
)

// EndsIn renders the time left until expiresAt, e.g. "3 days".
func EndsIn(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return EndsInNever
	}
	if !now.Before(*expiresAt) {
		return EndsInEnded
	}
	return strings.TrimSpace(humanize.RelTime(now, *expiresAt, "", ""))
}
