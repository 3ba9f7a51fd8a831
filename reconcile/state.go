// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import "maps"

// VoterState maps poll id to the option the current viewer chose. A poll
// has at most one entry; Set overwrites. A nil *VoterState is empty and
// ignores writes.
type VoterState struct {
	choices map[int64]int64
}

func NewVoterState() *VoterState {
	return &VoterState{choices: make(map[int64]int64)}
}

func (s *VoterState) Get(pollID int64) (int64, bool) {
	if s == nil {
		return 0, false
	}
	id, ok := s.choices[pollID]
	return id, ok
}

func (s *VoterState) Set(pollID, optionID int64) {
	if s == nil {
		return
	}
	if s.choices == nil {
		s.choices = make(map[int64]int64)
	}
	s.choices[pollID] = optionID
}

func (s *VoterState) Delete(pollID int64) {
	if s == nil {
		return
	}
	delete(s.choices, pollID)
}

func (s *VoterState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.choices)
}

// Snapshot returns a copy of all choices.
func (s *VoterState) Snapshot() map[int64]int64 {
	if s == nil {
		return map[int64]int64{}
	}
	return maps.Clone(s.choices)
}

// Replace swaps in a new set of choices, e.g. after a server sync.
func (s *VoterState) Replace(choices map[int64]int64) {
	if s == nil {
		return
	}
	s.choices = maps.Clone(choices)
	if s.choices == nil {
		s.choices = make(map[int64]int64)
	}
}
