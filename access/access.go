// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package access

import (
	"fmt"
	"time"

	"github.com/danielhkuo/vote-x/models"
)

// Viewer is the identity looking at a poll. Ownership is not part of the
// viewer: the service computes it per poll (Poll.IsOwner).
type Viewer struct {
	ID            int64
	Username      string
	Email         string
	Authenticated bool
}

// Guest is the anonymous viewer.
var Guest = Viewer{}

// Evaluator decides what a viewer may do with a poll.
type Evaluator struct {
	Now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

func (e *Evaluator) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// CanManage reports whether the viewer may edit or delete the poll.
func (e *Evaluator) CanManage(p models.Poll, v Viewer) bool {
	return p.IsOwner
}

// CanView reports whether the viewer may see the poll's details.
func (e *Evaluator) CanView(p models.Poll, v Viewer) bool {
	switch p.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityPrivate:
		return p.IsOwner
	case models.VisibilityRestricted:
		return p.IsOwner || p.Allows(v.Email)
	}
	return false
}

// CanVote reports whether the viewer may cast a vote right now.
func (e *Evaluator) CanVote(p models.Poll, v Viewer) bool {
	return e.CheckVote(p, v) == nil
}

// CheckVote is CanVote with the reason. It returns an error wrapping
// ErrNotPermitted or ErrPollExpired.
func (e *Evaluator) CheckVote(p models.Poll, v Viewer) error {
	if !e.CanView(p, v) {
		return fmt.Errorf("poll %d is %s: %w", p.ID, p.Visibility, models.ErrNotPermitted)
	}
	if p.Expired(e.now()) {
		return fmt.Errorf("poll %d: %w", p.ID, models.ErrPollExpired)
	}
	if !v.Authenticated && !p.AllowGuestVotes {
		return fmt.Errorf("poll %d does not accept guest votes: %w", p.ID, models.ErrNotPermitted)
	}
	return nil
}

// CheckManage returns an error wrapping ErrNotPermitted unless CanManage.
func (e *Evaluator) CheckManage(p models.Poll, v Viewer) error {
	if !e.CanManage(p, v) {
		return fmt.Errorf("poll %d is not yours: %w", p.ID, models.ErrNotPermitted)
	}
	return nil
}
