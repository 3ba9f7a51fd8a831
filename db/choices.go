// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// Choices persists the option this client last chose in each poll, so
// vote reconciliation survives restarts.
type Choices struct {
	db *DB
}

func NewChoices(d *DB) *Choices {
	return &Choices{db: d}
}

// LoadChoices returns every stored poll ID -> option ID.
func (c *Choices) LoadChoices(ctx context.Context) (map[int64]int64, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT poll_id, option_id FROM voter_choice`)
	if err != nil {
		return nil, fmt.Errorf("failed to load choices: %w", err)
	}
	defer rows.Close()

	choices := make(map[int64]int64)
	for rows.Next() {
		var pollID, optionID int64
		if err := rows.Scan(&pollID, &optionID); err != nil {
			return nil, fmt.Errorf("failed to scan choice: %w", err)
		}
		choices[pollID] = optionID
	}
	return choices, rows.Err()
}

func (c *Choices) SaveChoice(ctx context.Context, pollID, optionID int64) error {
	_, err := c.db.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO voter_choice (poll_id, option_id) VALUES (?, ?)
		ON CONFLICT (poll_id) DO UPDATE SET option_id = excluded.option_id
	`), pollID, optionID)
	if err != nil {
		return fmt.Errorf("failed to save choice for poll %d: %w", pollID, err)
	}
	return nil
}

func (c *Choices) DeleteChoice(ctx context.Context, pollID int64) error {
	_, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM voter_choice WHERE poll_id = ?`), pollID)
	if err != nil {
		return fmt.Errorf("failed to delete choice for poll %d: %w", pollID, err)
	}
	return nil
}
