// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package access decides who may see, vote on, and manage a poll.

# Rules

	CanManage  viewer owns the poll
	CanView    public: always
	           private: owner only
	           restricted: owner, or viewer email on the allowlist
	CanVote    CanView, poll not expired, and the viewer is
	           authenticated or the poll allows guest votes

Allowlist comparison is exact string equality; addresses are lower-cased
when they are added (see package allowlist).

# Clock

Expiry is evaluated against Evaluator.Now, so tests can pin time:

	ev := &access.Evaluator{Now: func() time.Time { return fixed }}
*/
package access
