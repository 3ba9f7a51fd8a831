// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store holds the client's poll collection and the voter's choices,
and applies every change to them.

# Modes

With a Service (usually *pollapi.Client) the collection mirrors the
server: Refresh replaces it with GET /polls. Without one the store runs in
demo mode and holds only polls created locally.

	s := store.New(session,
		store.WithService(client),
		store.WithChoices(db.NewChoices(conn)),
		store.WithSyncWorkers(cfg.SyncWorkers),
	)
	s.Refresh(ctx)
	s.SyncVotes(ctx) // authenticated viewers: ask the server what they chose

# Voting

Vote runs in two phases:

 1. check access (access.Evaluator), apply the vote locally with
    reconcile.Cast and record the choice
 2. POST /votes, then GET /polls/{id}; the server's poll replaces the
    local one

If the POST fails the poll and the choice are rolled back. A rollback never
overwrites data that arrived after the optimistic update.

# Concurrency

All methods are safe for concurrent use. Mutations of one poll (Vote,
Remove, RefreshPoll, allowlist changes) hold a per-poll slot; a second
mutation waits for it or for its ctx. A result that arrives after ctx is
done, or for a poll that has left the collection, is not applied.

# Reads

Get and List return deep copies. Filter returns an iter.Seq that can be
ranged over repeatedly; each range sees the collection as it is then.
*/
package store
