// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/vote-x/models"
	"github.com/danielhkuo/vote-x/reconcile"
)

// Vote records the viewer's vote for optionID in two phases. The vote is
// applied locally first; with a service it is then submitted and the
// poll refetched, and the server's copy replaces the local one.
//
// If the submission fails, the poll and the viewer's choice are restored
// to what they were before the call. If only the refetch fails, the
// submitted vote stands and the local result is kept.
func (s *Store) Vote(ctx context.Context, pollID, optionID int64) (models.Poll, error) {
	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	viewer := s.viewer()

	// phase 1: local
	s.mu.Lock()
	before, ok := s.getLocked(pollID)
	if !ok {
		s.mu.Unlock()
		return models.Poll{}, fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	before = before.Clone()
	if err := s.eval.CheckVote(before, viewer); err != nil {
		s.mu.Unlock()
		return models.Poll{}, err
	}
	prev, hadPrev := s.state.Get(pollID)
	optimistic, err := reconcile.Cast(s.state, before, optionID)
	if err != nil {
		s.mu.Unlock()
		return models.Poll{}, err
	}
	if hadPrev && prev == optionID {
		s.mu.Unlock()
		return optimistic, nil
	}
	s.putLocked(optimistic)
	applied := s.version[pollID]
	s.mu.Unlock()

	if s.svc == nil || !viewer.Authenticated {
		s.saveChoice(ctx, pollID, optionID)
	}
	if s.svc == nil {
		slog.Info("vote recorded locally", "poll_id", pollID, "option_id", optionID)
		return optimistic.Clone(), nil
	}

	// phase 2: server
	if err := s.svc.SubmitVote(ctx, optionID); err != nil {
		s.rollback(pollID, before, applied, prev, hadPrev)
		if !viewer.Authenticated {
			s.restoreChoice(ctx, pollID, prev, hadPrev)
		}
		return models.Poll{}, fmt.Errorf("failed to submit vote: %w", err)
	}

	server, err := s.svc.GetPoll(ctx, pollID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Poll{}, ctxErr
		}
		slog.Warn("vote submitted but refetch failed", "poll_id", pollID, "error", err)
		return optimistic.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return models.Poll{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.putLocked(server) {
		return models.Poll{}, fmt.Errorf("poll %d removed during vote: %w", pollID, models.ErrNotFound)
	}

	slog.Info("vote reconciled", "poll_id", pollID, "option_id", optionID, "total_votes", server.TotalVotes)
	return server.Clone(), nil
}

// rollback restores the pre-vote poll unless something newer replaced the
// optimistic copy, and restores the viewer's previous choice.
func (s *Store) rollback(pollID int64, before models.Poll, applied uint64, prev int64, hadPrev bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version[pollID] == applied {
		s.putLocked(before)
	}
	if hadPrev {
		s.state.Set(pollID, prev)
	} else {
		s.state.Delete(pollID)
	}
	slog.Debug("vote rolled back", "poll_id", pollID)
}

func (s *Store) saveChoice(ctx context.Context, pollID, optionID int64) {
	if s.choices == nil {
		return
	}
	if err := s.choices.SaveChoice(context.WithoutCancel(ctx), pollID, optionID); err != nil {
		slog.Warn("failed to persist choice", "poll_id", pollID, "error", err)
	}
}

func (s *Store) restoreChoice(ctx context.Context, pollID, prev int64, hadPrev bool) {
	if s.choices == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if hadPrev {
		err = s.choices.SaveChoice(ctx, pollID, prev)
	} else {
		err = s.choices.DeleteChoice(ctx, pollID)
	}
	if err != nil {
		slog.Warn("failed to restore choice", "poll_id", pollID, "error", err)
	}
}

// RestoreChoices loads persisted choices into the voter state, replacing
// it. Use it at session start for guest and demo voting.
func (s *Store) RestoreChoices(ctx context.Context) error {
	if s.choices == nil {
		return nil
	}

	choices, err := s.choices.LoadChoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore choices: %w", err)
	}

	s.mu.Lock()
	s.state.Replace(choices)
	s.mu.Unlock()
	return nil
}

// SyncVotes asks the service which option the authenticated viewer chose
// in every cached poll and replaces the voter state with the answers.
// Lookups run concurrently, bounded by the sync worker count. Guests and
// demo mode keep their local state.
func (s *Store) SyncVotes(ctx context.Context) error {
	if s.svc == nil || !s.viewer().Authenticated {
		return nil
	}

	ids := make([]int64, 0, s.Len())
	for _, p := range s.List() {
		ids = append(ids, p.ID)
	}

	choices := make([]*int64, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			opt, err := s.svc.MyVote(gctx, id)
			if errors.Is(err, models.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to fetch vote for poll %d: %w", id, err)
			}
			choices[i] = opt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	synced := make(map[int64]int64)
	for i, opt := range choices {
		if opt != nil {
			synced[ids[i]] = *opt
		}
	}

	s.mu.Lock()
	s.state.Replace(synced)
	s.mu.Unlock()

	slog.Info("votes synced", "polls", len(ids), "voted", len(synced))
	return nil
}
