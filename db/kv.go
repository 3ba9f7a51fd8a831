// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KV persists the client identity in the client_kv table. It implements
// auth.Store.
type KV struct {
	db      *DB
	timeout time.Duration
}

func NewKV(d *DB) *KV {
	return &KV{db: d, timeout: 5 * time.Second}
}

func (s *KV) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get returns "" for a missing key.
func (s *KV) Get(key string) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT value FROM client_kv WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *KV) Set(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO client_kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`), key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *KV) Delete(keys ...string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM client_kv WHERE key = ?`), k); err != nil {
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}
	return tx.Commit()
}
