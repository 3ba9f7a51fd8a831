// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth holds the client's identity: the token pair issued at login,
the best-effort voter email, and the viewer derived from them.

# Storage

Identity lives in a key-value Store, mirroring a browser's localStorage:

	access      bearer token attached to every request
	refresh     used to obtain a new access token
	user_email  best-effort voter email

db.KV persists the store in SQLite or PostgreSQL; Memory is the in-process
fallback. Tokens wraps a Store with typed accessors and implements
middleware.TokenSource.

# Session

Session turns the stored tokens into an access.Viewer:

	s := auth.NewSession(auth.NewTokens(store))
	s.Reload()           // at session start
	viewer := s.Viewer() // authenticated iff an access token is stored

The store is shared with other processes, so it is treated as an injected
capability and re-read with Reload rather than cached forever.

# Watching for Changes

Watcher reports writes to the file backing the store (including SQLite
-wal and -journal files), debounced:

	w := auth.NewWatcher(dbPath, func() { s.Reload() })
	w.Start(ctx)
	defer w.Stop()

# Token Generation

GenerateToken creates random URL-safe tokens (24 bytes of entropy); the fake
poll service in testutil issues its access and refresh tokens with it.
*/
package auth
