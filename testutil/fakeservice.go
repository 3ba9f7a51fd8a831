// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/middleware"
	"github.com/danielhkuo/vote-x/models"
)

type fakeUser struct {
	models.SimpleUser
	password string
}

type fakePoll struct {
	rec     models.PollRecord
	ownerID int64
	allowed []string
}

// FakeService is an in-memory poll service speaking the same JSON API as
// the real one. It enforces one active vote per poll per caller, computes
// is_owner per caller, and hides polls the caller may not see.
type FakeService struct {
	Server *httptest.Server

	// PageSize controls pagination of GET /polls (default 50).
	PageSize int
	// OnRequest runs before each request is handled, outside the lock.
	OnRequest func(r *http.Request)

	mu       sync.Mutex
	nextID   int64
	users    map[int64]*fakeUser
	access   map[string]int64
	refresh  map[string]int64
	polls    map[int64]*fakePoll
	order    []int64
	votes    map[string]int64 // pollID/voter -> optionID
	failures map[string][]int
	requests []string
}

// NewFakeService starts a fake service that is closed when the test ends.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	s := &FakeService{
		PageSize: 50,
		nextID:   100,
		users:    make(map[int64]*fakeUser),
		access:   make(map[string]int64),
		refresh:  make(map[string]int64),
		polls:    make(map[int64]*fakePoll),
		votes:    make(map[string]int64),
		failures: make(map[string][]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Server.Close)
	return s
}

// URL is the service base URL.
func (s *FakeService) URL() string {
	return s.Server.URL
}

func (s *FakeService) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /polls", middleware.WithLogging(s.listPolls))
	mux.HandleFunc("POST /polls", middleware.WithLogging(s.createPoll))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(s.getPoll))
	mux.HandleFunc("DELETE /polls/{id}", middleware.WithLogging(s.deletePoll))
	mux.HandleFunc("GET /polls/{id}/allowed-users", middleware.WithLogging(s.getAllowed))
	mux.HandleFunc("POST /polls/{id}/allowed-users", middleware.WithLogging(s.addAllowed))
	mux.HandleFunc("DELETE /polls/{id}/allowed-users", middleware.WithLogging(s.removeAllowed))
	mux.HandleFunc("POST /votes", middleware.WithLogging(s.submitVote))
	mux.HandleFunc("GET /votes/me/{id}", middleware.WithLogging(s.myVote))
	mux.HandleFunc("GET /auth/lookup", middleware.WithLogging(s.lookup))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(s.login))
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(s.register))
	mux.HandleFunc("POST /auth/token/refresh", middleware.WithLogging(s.refreshToken))
	mux.HandleFunc("GET /auth/profile", middleware.WithLogging(s.profile))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.OnRequest != nil {
			s.OnRequest(r)
		}

		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, key)
		var status int
		if queue := s.failures[key]; len(queue) > 0 {
			status = queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			middleware.ErrorResponse(w, status, "injected failure")
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Fixtures

// AddUser registers an account and returns it with a fresh access token.
func (s *FakeService) AddUser(username, email, password string) (models.SimpleUser, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.newUserLocked(username, email, password)
	token, _ := auth.GenerateToken()
	s.access[token] = u.ID
	return u.SimpleUser, token
}

func (s *FakeService) newUserLocked(username, email, password string) *fakeUser {
	s.nextID++
	u := &fakeUser{
		SimpleUser: models.SimpleUser{ID: s.nextID, Username: username, Email: allowlist.Normalize(email)},
		password:   password,
	}
	s.users[u.ID] = u
	return u
}

// PollSpec describes a poll to seed.
type PollSpec struct {
	Title           string
	Description     string
	Category        *string
	Visibility      models.Visibility
	AllowGuestVotes bool
	ExpiresAt       *time.Time
	Options         []string
	Allowed         []string
	OwnerID         int64
}

// AddPoll seeds a poll and returns its record as the owner would see it.
func (s *FakeService) AddPoll(spec PollSpec) models.PollRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.Visibility == "" {
		spec.Visibility = models.VisibilityPublic
	}
	if spec.Description == "" {
		spec.Description = "A poll seeded for tests"
	}

	s.nextID++
	p := &fakePoll{
		ownerID: spec.OwnerID,
		rec: models.PollRecord{
			ID:              s.nextID,
			Title:           spec.Title,
			Description:     spec.Description,
			Category:        spec.Category,
			CreatedAt:       time.Now().UTC(),
			ExpiresAt:       spec.ExpiresAt,
			Visibility:      spec.Visibility,
			AllowGuestVotes: spec.AllowGuestVotes,
		},
	}
	for _, text := range spec.Options {
		s.nextID++
		p.rec.Options = append(p.rec.Options, models.OptionRecord{ID: s.nextID, Text: text})
	}
	for _, e := range spec.Allowed {
		p.allowed = append(p.allowed, allowlist.Normalize(e))
	}

	s.polls[p.rec.ID] = p
	s.order = append([]int64{p.rec.ID}, s.order...)
	return s.viewLocked(p, spec.OwnerID)
}

// FailNext makes the next request matching "METHOD /path" fail with status.
// Calls queue up.
func (s *FakeService) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], status)
}

// Requests returns "METHOD /path" for every request received so far.
func (s *FakeService) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// CountRequests counts received requests matching "METHOD /path".
func (s *FakeService) CountRequests(method, path string) int {
	key := method + " " + path
	n := 0
	for _, r := range s.Requests() {
		if r == key {
			n++
		}
	}
	return n
}

// Poll returns the stored record as its owner sees it.
func (s *FakeService) Poll(id int64) (models.PollRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.polls[id]
	if !ok {
		return models.PollRecord{}, false
	}
	return s.viewLocked(p, p.ownerID), true
}

// CastVote records a vote directly, as another client would.
func (s *FakeService) CastVote(userID, optionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pollForOptionLocked(optionID)
	if p == nil {
		return models.ErrInvalidOption
	}
	s.voteLocked(p, "user:"+strconv.FormatInt(userID, 10), optionID)
	return nil
}

// Helpers (all *Locked helpers require s.mu)

func (s *FakeService) callerLocked(r *http.Request) *fakeUser {
	token := middleware.BearerToken(r)
	if token == "" {
		return nil
	}
	id, ok := s.access[token]
	if !ok {
		return nil
	}
	return s.users[id]
}

func voterKey(r *http.Request, u *fakeUser) string {
	if u != nil {
		return "user:" + strconv.FormatInt(u.ID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "guest:" + host
}

func (s *FakeService) canSeeLocked(p *fakePoll, u *fakeUser) bool {
	owner := u != nil && u.ID == p.ownerID
	switch p.rec.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityPrivate:
		return owner
	case models.VisibilityRestricted:
		return owner || (u != nil && slices.Contains(p.allowed, u.Email))
	}
	return false
}

func (s *FakeService) allowedUsersLocked(p *fakePoll) []models.SimpleUser {
	users := []models.SimpleUser{}
	for _, email := range p.allowed {
		for _, u := range s.users {
			if u.Email == email {
				users = append(users, u.SimpleUser)
				break
			}
		}
	}
	return users
}

func (s *FakeService) viewLocked(p *fakePoll, viewerID int64) models.PollRecord {
	rec := p.rec
	rec.Options = slices.Clone(p.rec.Options)
	rec.IsOwner = viewerID != 0 && viewerID == p.ownerID
	rec.AllowedUsers = s.allowedUsersLocked(p)
	rec.EndsIn = models.EndsIn(rec.ExpiresAt, time.Now())
	return rec
}

func (s *FakeService) pollForOptionLocked(optionID int64) *fakePoll {
	for _, p := range s.polls {
		for _, o := range p.rec.Options {
			if o.ID == optionID {
				return p
			}
		}
	}
	return nil
}

// voteLocked moves the voter's single ballot on p to optionID and
// recomputes the tallies.
func (s *FakeService) voteLocked(p *fakePoll, voter string, optionID int64) {
	s.votes[voteKey(p.rec.ID, voter)] = optionID

	counts := make(map[int64]int64)
	prefix := strconv.FormatInt(p.rec.ID, 10) + "/"
	var total int64
	for k, opt := range s.votes {
		if strings.HasPrefix(k, prefix) {
			counts[opt]++
			total++
		}
	}
	for i := range p.rec.Options {
		p.rec.Options[i].Votes = counts[p.rec.Options[i].ID]
	}
	p.rec.TotalVotes = total
}

func voteKey(pollID int64, voter string) string {
	return fmt.Sprintf("%d/%s", pollID, voter)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// lookupPollLocked resolves {id} and writes 404 when the poll is missing or
// hidden from the caller.
func (s *FakeService) lookupPollLocked(w http.ResponseWriter, r *http.Request, u *fakeUser) *fakePoll {
	id, ok := pathID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return nil
	}
	p, ok := s.polls[id]
	if !ok || !s.canSeeLocked(p, u) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return nil
	}
	return p
}

func viewerID(u *fakeUser) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
