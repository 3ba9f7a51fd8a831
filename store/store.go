// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/danielhkuo/vote-x/access"
	"github.com/danielhkuo/vote-x/models"
	"github.com/danielhkuo/vote-x/reconcile"
)

// Service is the remote poll service. *pollapi.Client implements it.
type Service interface {
	ListPolls(ctx context.Context) ([]models.Poll, error)
	GetPoll(ctx context.Context, pollID int64) (models.Poll, error)
	CreatePoll(ctx context.Context, req models.CreatePollRequest) (models.Poll, error)
	DeletePoll(ctx context.Context, pollID int64) error
	SubmitVote(ctx context.Context, optionID int64) error
	MyVote(ctx context.Context, pollID int64) (*int64, error)
	AllowedUsers(ctx context.Context, pollID int64) ([]models.SimpleUser, error)
	AddAllowedUser(ctx context.Context, pollID int64, email string) ([]models.SimpleUser, error)
	RemoveAllowedUser(ctx context.Context, pollID int64, email string) ([]models.SimpleUser, error)
	LookupUser(ctx context.Context, email string) (models.LookupResponse, error)
}

// ChoiceRepo persists the voter's choices when the service cannot report
// them (guest and demo voting). *db.Choices implements it.
type ChoiceRepo interface {
	LoadChoices(ctx context.Context) (map[int64]int64, error)
	SaveChoice(ctx context.Context, pollID, optionID int64) error
	DeleteChoice(ctx context.Context, pollID int64) error
}

// ViewerSource reports the current viewer. *auth.Session implements it.
type ViewerSource interface {
	Viewer() access.Viewer
}

// Store is the client's collection of polls and the voter's choices. All
// methods are safe for concurrent use. Mutations of one poll are
// serialized; a second mutation waits for the first.
type Store struct {
	svc     Service
	viewers ViewerSource
	eval    *access.Evaluator
	choices ChoiceRepo
	workers int
	now     func() time.Time

	mu      sync.RWMutex
	polls   []models.Poll
	index   map[int64]int
	version map[int64]uint64
	state   *reconcile.VoterState
	locks   map[int64]chan struct{}
	localID int64
}

type Option func(*Store)

// WithService connects the store to the remote service. Without one the
// store runs in demo mode and holds only locally created polls.
func WithService(svc Service) Option {
	return func(s *Store) { s.svc = svc }
}

func WithChoices(repo ChoiceRepo) Option {
	return func(s *Store) { s.choices = repo }
}

func WithEvaluator(e *access.Evaluator) Option {
	return func(s *Store) { s.eval = e }
}

// WithSyncWorkers bounds concurrent lookups in SyncVotes (default 4).
func WithSyncWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. viewers may be nil for an always-guest store.
func New(viewers ViewerSource, opts ...Option) *Store {
	s := &Store{
		viewers: viewers,
		workers: 4,
		now:     time.Now,
		index:   make(map[int64]int),
		version: make(map[int64]uint64),
		state:   reconcile.NewVoterState(),
		locks:   make(map[int64]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.eval == nil {
		s.eval = &access.Evaluator{Now: s.now}
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Demo reports whether the store runs without a service.
func (s *Store) Demo() bool {
	return s.svc == nil
}

func (s *Store) viewer() access.Viewer {
	if s.viewers == nil {
		return access.Guest
	}
	return s.viewers.Viewer()
}

// lock takes the per-poll slot, waiting until it is free or ctx is done.
func (s *Store) lock(ctx context.Context, pollID int64) (func(), error) {
	s.mu.Lock()
	slot, ok := s.locks[pollID]
	if !ok {
		slot = make(chan struct{}, 1)
		s.locks[pollID] = slot
	}
	s.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Collection (all *Locked helpers require s.mu)

func (s *Store) reindexLocked() {
	clear(s.index)
	for i, p := range s.polls {
		s.index[p.ID] = i
	}
}

func (s *Store) getLocked(pollID int64) (models.Poll, bool) {
	i, ok := s.index[pollID]
	if !ok {
		return models.Poll{}, false
	}
	return s.polls[i], true
}

// putLocked replaces a present poll and bumps its version.
func (s *Store) putLocked(p models.Poll) bool {
	i, ok := s.index[p.ID]
	if !ok {
		return false
	}
	s.polls[i] = p.Clone()
	s.version[p.ID]++
	return true
}

func (s *Store) removeLocked(pollID int64) {
	i, ok := s.index[pollID]
	if !ok {
		return
	}
	s.polls = slices.Delete(s.polls, i, i+1)
	delete(s.version, pollID)
	s.reindexLocked()
}

// Load replaces the whole collection, keeping the given order. Duplicate
// ids keep their first occurrence.
func (s *Store) Load(polls []models.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.polls = make([]models.Poll, 0, len(polls))
	seen := make(map[int64]bool, len(polls))
	for _, p := range polls {
		if seen[p.ID] {
			slog.Warn("duplicate poll in listing", "poll_id", p.ID)
			continue
		}
		seen[p.ID] = true
		s.polls = append(s.polls, p.Clone())
		s.version[p.ID]++
	}
	for id := range s.version {
		if !seen[id] {
			delete(s.version, id)
		}
	}
	s.reindexLocked()
}

// Refresh reloads the collection from the service. It is a no-op in demo
// mode. A result arriving after ctx is done is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	if s.svc == nil {
		return nil
	}

	polls, err := s.svc.ListPolls(ctx)
	if err != nil {
		return fmt.Errorf("failed to load polls: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Load(polls)
	slog.Info("polls loaded", "count", len(polls))
	return nil
}

// RefreshPoll refetches one poll and overwrites the cached copy.
func (s *Store) RefreshPoll(ctx context.Context, pollID int64) (models.Poll, error) {
	if s.svc == nil {
		return s.Get(pollID)
	}

	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	defer unlock()

	p, err := s.svc.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to refresh poll %d: %w", pollID, err)
	}
	if err := ctx.Err(); err != nil {
		return models.Poll{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.putLocked(p) {
		return models.Poll{}, fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	return p.Clone(), nil
}

// Create validates the draft, then creates the poll and inserts it at the
// front. An invalid draft never reaches the service. The allowlist of a
// restricted poll is normalized first; a duplicate entry fails with
// ErrDuplicateUser and, with a service, an unregistered one with
// ErrUnknownUser, both before the poll is created.
func (s *Store) Create(ctx context.Context, draft models.PollDraft) (models.Poll, error) {
	if err := draft.Validate(); err != nil {
		return models.Poll{}, err
	}

	now := s.now()
	req := draft.Request(now)
	if req.Visibility == models.VisibilityRestricted {
		emails, err := s.draftAllowlist(ctx, req.AllowedUsers)
		if err != nil {
			return models.Poll{}, fmt.Errorf("invalid allowlist: %w", err)
		}
		req.AllowedUsers = emails
	}

	var p models.Poll
	if s.svc == nil {
		p = s.localPoll(req, now)
	} else {
		created, err := s.svc.CreatePoll(ctx, req)
		if err != nil {
			return models.Poll{}, fmt.Errorf("failed to create poll: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return models.Poll{}, err
		}
		p = created
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.putLocked(p) {
		s.polls = slices.Insert(s.polls, 0, p.Clone())
		s.version[p.ID]++
		s.reindexLocked()
	}

	slog.Info("poll created", "poll_id", p.ID, "visibility", p.Visibility, "options", len(p.Options))
	return p.Clone(), nil
}

// localPoll builds a demo-mode poll owned by the viewer.
func (s *Store) localPoll(req models.CreatePollRequest, now time.Time) models.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.localID++
	category := req.Category
	p := models.Poll{
		ID:              s.localID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        &category,
		Visibility:      req.Visibility,
		AllowGuestVotes: req.AllowGuestVotes,
		IsOwner:         true,
		ExpiresAt:       req.ExpiresAt,
		EndsIn:          models.EndsIn(req.ExpiresAt, now),
		CreatedAt:       now.UTC(),
		AllowedUsers:    []models.SimpleUser{},
	}
	for _, text := range req.Options {
		s.localID++
		p.Options = append(p.Options, models.PollOption{ID: s.localID, Text: text})
	}
	for _, email := range req.AllowedUsers {
		p.AllowedUsers = append(p.AllowedUsers, models.SimpleUser{Email: email})
	}
	return p
}

// Remove deletes a poll the viewer owns. The poll stays in the collection
// unless the service confirms the delete.
func (s *Store) Remove(ctx context.Context, pollID int64) error {
	unlock, err := s.lock(ctx, pollID)
	if err != nil {
		return err
	}
	defer unlock()

	p, err := s.Get(pollID)
	if err != nil {
		return err
	}
	if err := s.eval.CheckManage(p, s.viewer()); err != nil {
		return err
	}

	if s.svc != nil {
		if err := s.svc.DeletePoll(ctx, pollID); err != nil {
			return fmt.Errorf("failed to delete poll %d: %w", pollID, err)
		}
	}

	s.mu.Lock()
	s.removeLocked(pollID)
	_, voted := s.state.Get(pollID)
	s.state.Delete(pollID)
	s.mu.Unlock()

	if voted && s.choices != nil {
		if err := s.choices.DeleteChoice(context.WithoutCancel(ctx), pollID); err != nil {
			slog.Warn("failed to forget choice", "poll_id", pollID, "error", err)
		}
	}

	slog.Info("poll removed", "poll_id", pollID)
	return nil
}

// Reads

// Get returns a copy of the poll.
func (s *Store) Get(pollID int64) (models.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.getLocked(pollID)
	if !ok {
		return models.Poll{}, fmt.Errorf("poll %d: %w", pollID, models.ErrNotFound)
	}
	return p.Clone(), nil
}

// List returns copies of all polls in collection order.
func (s *Store) List() []models.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Poll, len(s.polls))
	for i, p := range s.polls {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.polls)
}

// Filter yields copies of the polls matching search and category, in
// collection order. Each range over the sequence sees the collection as it
// is when the range starts.
func (s *Store) Filter(search, category string) iter.Seq[models.Poll] {
	return func(yield func(models.Poll) bool) {
		for _, p := range s.List() {
			if !p.Matches(search, category) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Categories returns the distinct category labels, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var labels []string
	for _, p := range s.polls {
		labels = append(labels, p.CategoryLabel())
	}
	slices.Sort(labels)
	return slices.Compact(labels)
}

// Choice returns the option the viewer chose in the poll.
func (s *Store) Choice(pollID int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Get(pollID)
}

// Choices returns a copy of all of the viewer's choices.
func (s *Store) Choices() map[int64]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Snapshot()
}
