// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// DB is a *sql.DB that knows which placeholder style its driver wants.
type DB struct {
	*sql.DB
	driver string
	path   string
}

// Open connects to the database, verifies the connection and creates the
// schema. dbType is "sqlite" (default) or "postgres".
func Open(ctx context.Context, dbType, url string) (*DB, error) {
	if dbType == "" {
		dbType = TypeSQLite
	}
	if dbType != TypeSQLite && dbType != TypePostgres {
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	d := &DB{driver: dbType}
	if dbType == TypeSQLite {
		d.path = FilePath(url)
		if d.path != "" {
			if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
	}

	conn, err := sql.Open(dbType, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbType == TypeSQLite {
		// one writer at a time; the CLI never needs more
		conn.SetMaxOpenConns(1)
	}
	d.DB = conn

	if err := d.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := d.CreateSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// Path is the file backing a SQLite database, or "" for PostgreSQL and
// in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// FilePath extracts the file name from a SQLite DSN such as
// "file:votex.db?_pragma=busy_timeout(5000)".
func FilePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	p, _, _ = strings.Cut(p, "?")
	if p == "" || p == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return p
}

// Rebind rewrites "?" placeholders to "$1", "$2", ... for PostgreSQL.
func (d *DB) Rebind(query string) string {
	if d.driver != TypePostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
