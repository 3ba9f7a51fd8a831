// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// CreateSchema creates all tables needed by the client.
// Safe to call multiple times - uses IF NOT EXISTS.
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Identity (access/refresh tokens, voter email)
CREATE TABLE IF NOT EXISTS client_kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- The option this client last chose in each poll
CREATE TABLE IF NOT EXISTS voter_choice (
    poll_id BIGINT PRIMARY KEY,
    option_id BIGINT NOT NULL
);
`
