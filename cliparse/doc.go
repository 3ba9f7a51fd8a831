// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Commands built with cobra bind the same flags and resolve after parsing:

	cliparse.Register(cmd.PersistentFlags(), &cfg)
	// ... in PersistentPreRunE
	cliparse.Resolve(cmd.Flags(), &cfg)

# Config Fields

  - APIURL: Poll service base URL, may carry a path prefix (required)
  - DatabaseURL: State database (default: file:votex.db)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - Timeout: Per-request timeout (default: 15s)
  - VoterEmail: Voter email hint used before login
  - LogLevel: debug, info, warn or error (default: info)
  - PageLimit: Maximum poll pages followed (default: 20)
  - SyncWorkers: Concurrent vote lookups (default: 4)

# Sources

Each field is taken from the first source that sets it:

	flag > environment (.env included) > YAML file > default

# CLI Flags and Environment Variables

	-a, --api           VOTEX_API_URL
	-d, --db            VOTEX_DATABASE_URL, DATABASE_URL
	-t, --db-type       VOTEX_DATABASE_TYPE, DATABASE_TYPE
	    --timeout       VOTEX_TIMEOUT
	    --email         VOTEX_VOTER_EMAIL
	    --log-level     LOG_LEVEL
	    --page-limit    VOTEX_PAGE_LIMIT
	    --sync-workers  VOTEX_SYNC_WORKERS
	-c, --config        VOTEX_CONFIG

LoadDotEnv reads a .env file into the environment first; variables already
set are not overridden.

# YAML File

	api_url: https://polls.example.com/api
	database_type: postgres
	database_url: postgres://votex@localhost/votex?sslmode=disable
	timeout: 10s
	page_limit: 5

# Validation

Resolve returns an error if the API URL is missing, the database type or
log level is unknown, or a numeric setting is out of range.
*/
package cliparse
