// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"fmt"

	"github.com/danielhkuo/vote-x/models"
)

// Apply moves one voter's ballot on p from prev (nil for a first vote) to
// next and returns the new poll. p is not modified.
//
// A first vote adds one to TotalVotes; a change moves one unit of tally
// between two options and leaves TotalVotes alone. Voting again for prev
// is a no-op. On error nothing is applied.
func Apply(p models.Poll, prev *int64, next int64) (models.Poll, error) {
	if _, ok := p.Option(next); !ok {
		return p, fmt.Errorf("option %d on poll %d: %w", next, p.ID, models.ErrInvalidOption)
	}
	if prev != nil && *prev == next {
		return p.Clone(), nil
	}

	out := p.Clone()
	var delta int64
	for i := range out.Options {
		o := &out.Options[i]
		switch {
		case o.ID == next:
			o.Votes++
			delta++
		case prev != nil && o.ID == *prev && o.Votes > 0:
			o.Votes--
			delta--
		}
	}
	// delta is 0 for a change and 1 for a first vote. It is also 1 when
	// prev no longer names a counted option, which keeps the total equal
	// to the sum of the tallies.
	out.TotalVotes += delta
	return out, nil
}

// Cast applies a vote for next using the voter's previous choice from
// state, then records next as the voter's choice. state is only updated
// when the vote applies.
func Cast(state *VoterState, p models.Poll, next int64) (models.Poll, error) {
	var prev *int64
	if id, ok := state.Get(p.ID); ok {
		prev = &id
	}

	out, err := Apply(p, prev, next)
	if err != nil {
		return p, err
	}
	state.Set(p.ID, next)
	return out, nil
}
