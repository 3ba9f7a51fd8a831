// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package testutil provides shared helpers for tests: an in-memory fake of
the remote poll service, a throwaway SQLite database, and session and
config fixtures.

# Fake Service

	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{
		Title:   "Lunch",
		Options: []string{"Pizza", "Tacos"},
		OwnerID: alice.ID,
	})

The fake speaks the same JSON API as the real service under svc.URL():
paginated GET /polls with absolute next links, per-caller is_owner and
visibility filtering, one active vote per poll per caller (guests are
keyed by remote address), allowlist management, and the auth endpoints.

Failures are injected one request at a time:

	svc.FailNext("POST", "/votes", http.StatusInternalServerError)

Requests and CountRequests report what the fake received, and OnRequest
runs before each request is handled.

# Database

SetupTestDB opens a SQLite file under t.TempDir() with the full schema and
closes it when the test ends.
*/
package testutil
