// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconcile applies votes to poll tallies.

# Accounting

TotalVotes counts voters who have cast a ballot, not ballot events:

	first vote      chosen option +1, TotalVotes +1
	change of vote  old option -1 (never below 0), new option +1, TotalVotes unchanged
	same option     no change at all

After every Apply, TotalVotes equals the sum of the option tallies when it
did before.

# Voter State

VoterState holds the viewer's current choice per poll; Cast reads the
previous choice from it and records the new one:

	state := reconcile.NewVoterState()
	poll, err := reconcile.Cast(state, poll, optionID)

Errors wrap models.ErrInvalidOption. Access and expiry checks belong to
package access and are done by the caller.
*/
package reconcile
