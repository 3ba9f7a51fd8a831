// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the votex command, a terminal client for a remote
poll service.

Polls are public, private (owner only) or restricted to an allowlist of
registered users. Votes are applied locally first and then reconciled with
the service, whose copy always wins.

# Usage

	votex --api https://polls.example.com/api list
	votex login alice@example.com
	votex show 12
	votex vote 12 57
	votex create --title "Team lunch" --description "Where do we eat on Friday?" \
		-o Pizza -o Tacos --visibility restricted --allow bob@example.com
	votex allow 12 carol@example.com
	votex watch --interval 1m

# Configuration

Settings come from flags, environment variables (a .env file is loaded if
present), a YAML file and defaults, in that order of precedence:

  - VOTEX_API_URL (-a, --api): poll service base URL (required)
  - VOTEX_DATABASE_URL (-d, --db): state database (default file:votex.db)
  - VOTEX_DATABASE_TYPE (-t, --db-type): sqlite or postgres
  - VOTEX_TIMEOUT (--timeout): per-request timeout
  - VOTEX_VOTER_EMAIL (--email): voter email hint used before login
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - VOTEX_CONFIG (-c, --config): YAML config file

The state database keeps the access and refresh tokens and the choices
made while signed out, so a session survives between invocations.

# Architecture

  - models: poll types, drafts and error sentinels
  - access: who may view, vote on and manage a poll
  - reconcile: vote application and per-voter choices
  - allowlist: allowlist normalization and verification
  - store: the poll collection and its two-phase vote
  - pollapi: REST client for the poll service
  - auth: token storage, sessions and the token file watcher
  - db: SQLite/PostgreSQL state database
  - middleware: HTTP client and server helpers
  - render: terminal output
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
