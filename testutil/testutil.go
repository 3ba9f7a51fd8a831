// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/cliparse"
	"github.com/danielhkuo/vote-x/db"
)

// SetupTestDB opens a fresh SQLite database in a temp dir with the full schema
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "votex-test.db")
	d, err := db.Open(context.Background(), db.TypeSQLite, "file:"+path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// GetTestConfig returns a standard test configuration pointing at apiURL
func GetTestConfig(apiURL string) cliparse.Config {
	return cliparse.Config{
		APIURL:       apiURL,
		DatabaseURL:  "file::memory:",
		DatabaseType: db.TypeSQLite,
		Timeout:      5 * time.Second,
		LogLevel:     "error",
		PageLimit:    20,
		SyncWorkers:  4,
	}
}

// NewTestSession returns a reloaded session over an in-memory store. An
// empty token gives an anonymous session.
func NewTestSession(t *testing.T, token, email string) *auth.Session {
	t.Helper()

	tokens := auth.NewTokens(auth.NewMemory())
	if token != "" {
		if err := tokens.Save(auth.TokenPair{Access: token}); err != nil {
			t.Fatalf("Failed to store token: %v", err)
		}
	}
	if email != "" {
		if err := tokens.SetEmail(email); err != nil {
			t.Fatalf("Failed to store email: %v", err)
		}
	}

	s := auth.NewSession(tokens)
	if err := s.Reload(); err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	return s
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
