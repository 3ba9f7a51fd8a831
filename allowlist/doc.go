// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package allowlist manages the email allowlist of restricted polls.

Emails are trimmed and lower-cased before any comparison or storage. Only
accounts confirmed by the identity lookup (GET /auth/lookup) may be added:

	d := allowlist.NewDraft(client)
	err := d.Add(ctx, " Alice@Example.com ")  // stored as alice@example.com

Adding an email that is already present fails with models.ErrDuplicateUser;
an email with no account fails with models.ErrUnknownUser. Neither changes
the list.

Allowlists of existing polls are edited through store.Store, which uses the
same Normalize, Contains and Verify helpers.
*/
package allowlist
