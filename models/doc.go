// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the poll domain types, the JSON records exchanged with
the poll service, and the error values shared by every other package.

# Domain Types

  - Poll: a poll as cached by the client, with ordered options
  - PollOption: one answer and its tally
  - SimpleUser: an allowlist entry (id, username, email)
  - PollDraft: a poll being authored, before the service assigns ids

A Poll's IsOwner flag is computed by the service for the viewer that fetched
it. Polls are values; use Clone before handing one to code that may mutate it.

# Wire Types

Records match the service's JSON field names:

  - PollRecord / OptionRecord: GET /polls, GET /polls/{id}, POST /polls
  - PollPage: paginated envelope {count, next, previous, results}
  - CreatePollRequest, VoteRequest, AllowedUserRequest
  - MyVoteResponse, LookupResponse, LoginResponse, Profile
  - ErrorResponse: error, message, detail

Convert with FromRecord and ToRecord.

# Errors

	ErrInvalidOption   unknown option id
	ErrPollExpired     poll end time has passed
	ErrNotPermitted    viewer may not perform the operation
	ErrDuplicateUser   email already on the allowlist
	ErrUnknownUser     no account with that email
	ErrEmptyAllowlist  restricted poll without allowed users
	ErrNetworkFailure  transport or service-side failure
	ErrNotFound        poll or option absent
	ErrInvalidDraft    draft failed validation (see DraftError)

# Constants

Visibility values:

	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityRestricted = "restricted"

Category labels:

	CategoryAll           = "all"            // bypasses the category filter
	CategoryUncategorized = "Uncategorized"  // label for polls with no category
	CategoryDefault       = "General"        // used when a draft has none
*/
package models
