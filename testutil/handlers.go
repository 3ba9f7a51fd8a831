// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/vote-x/allowlist"
	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/middleware"
	"github.com/danielhkuo/vote-x/models"
)

// Polls

func (s *FakeService) listPolls(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	var visible []*fakePoll
	for _, id := range s.order {
		if p := s.polls[id]; s.canSeeLocked(p, u) {
			visible = append(visible, p)
		}
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}

	size := max(s.PageSize, 1)
	start := min((page-1)*size, len(visible))
	end := min(start+size, len(visible))

	resp := models.PollPage{Count: len(visible), Results: []models.PollRecord{}}
	for _, p := range visible[start:end] {
		resp.Results = append(resp.Results, s.viewLocked(p, viewerID(u)))
	}
	if end < len(visible) {
		next := fmt.Sprintf("http://%s%s?page=%d", r.Host, r.URL.Path, page+1)
		resp.Next = &next
	}
	if page > 1 {
		prev := fmt.Sprintf("http://%s%s?page=%d", r.Host, r.URL.Path, page-1)
		resp.Previous = &prev
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (s *FakeService) createPoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	if u == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least 2 options are required")
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityPublic
	}
	if !req.Visibility.Valid() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid visibility")
		return
	}
	if req.Visibility == models.VisibilityRestricted && len(req.AllowedUsers) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "restricted polls need at least one allowed user")
		return
	}

	var allowed []string
	for _, raw := range req.AllowedUsers {
		email := allowlist.Normalize(raw)
		if s.userByEmailLocked(email) == nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "unknown user: "+email)
			return
		}
		if !slices.Contains(allowed, email) {
			allowed = append(allowed, email)
		}
	}

	s.nextID++
	p := &fakePoll{
		ownerID: u.ID,
		allowed: allowed,
		rec: models.PollRecord{
			ID:              s.nextID,
			Title:           req.Title,
			Description:     req.Description,
			CreatedAt:       time.Now().UTC(),
			ExpiresAt:       req.ExpiresAt,
			Visibility:      req.Visibility,
			AllowGuestVotes: req.AllowGuestVotes,
		},
	}
	if req.Category != "" {
		cat := req.Category
		p.rec.Category = &cat
	}
	for _, text := range req.Options {
		s.nextID++
		p.rec.Options = append(p.rec.Options, models.OptionRecord{ID: s.nextID, Text: text})
	}

	s.polls[p.rec.ID] = p
	s.order = append([]int64{p.rec.ID}, s.order...)

	middleware.JSONResponse(w, http.StatusCreated, s.viewLocked(p, u.ID))
}

func (s *FakeService) getPoll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	p := s.lookupPollLocked(w, r, u)
	if p == nil {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, s.viewLocked(p, viewerID(u)))
}

func (s *FakeService) deletePoll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	p := s.lookupPollLocked(w, r, u)
	if p == nil {
		return
	}
	if u == nil || u.ID != p.ownerID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the owner can delete this poll")
		return
	}

	delete(s.polls, p.rec.ID)
	s.order = slices.DeleteFunc(s.order, func(id int64) bool { return id == p.rec.ID })
	prefix := strconv.FormatInt(p.rec.ID, 10) + "/"
	for k := range s.votes {
		if strings.HasPrefix(k, prefix) {
			delete(s.votes, k)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Allowlist

// ownedPollLocked resolves {id} and requires the caller to own it.
func (s *FakeService) ownedPollLocked(w http.ResponseWriter, r *http.Request) *fakePoll {
	u := s.callerLocked(r)
	p := s.lookupPollLocked(w, r, u)
	if p == nil {
		return nil
	}
	if u == nil || u.ID != p.ownerID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only the owner can manage the allowlist")
		return nil
	}
	return p
}

func (s *FakeService) getAllowed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ownedPollLocked(w, r)
	if p == nil {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, s.allowedUsersLocked(p))
}

func (s *FakeService) addAllowed(w http.ResponseWriter, r *http.Request) {
	var req models.AllowedUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ownedPollLocked(w, r)
	if p == nil {
		return
	}

	email := allowlist.Normalize(req.Email)
	if s.userByEmailLocked(email) == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "User not found")
		return
	}
	if slices.Contains(p.allowed, email) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "User already allowed")
		return
	}

	p.allowed = append(p.allowed, email)
	middleware.JSONResponse(w, http.StatusOK, s.allowedUsersLocked(p))
}

func (s *FakeService) removeAllowed(w http.ResponseWriter, r *http.Request) {
	var req models.AllowedUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.ownedPollLocked(w, r)
	if p == nil {
		return
	}

	email := allowlist.Normalize(req.Email)
	p.allowed = slices.DeleteFunc(p.allowed, func(e string) bool { return e == email })
	middleware.JSONResponse(w, http.StatusOK, s.allowedUsersLocked(p))
}

// Votes

func (s *FakeService) submitVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	p := s.pollForOptionLocked(req.Option)
	if p == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid option")
		return
	}
	if !s.canSeeLocked(p, u) {
		middleware.ErrorResponse(w, http.StatusForbidden, "You do not have access to this poll")
		return
	}
	if u == nil && !p.rec.AllowGuestVotes {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required to vote")
		return
	}
	if p.rec.ExpiresAt != nil && !time.Now().Before(*p.rec.ExpiresAt) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Poll has expired")
		return
	}

	s.voteLocked(p, voterKey(r, u), req.Option)
	middleware.JSONResponse(w, http.StatusCreated, models.VoteRequest{Option: req.Option})
}

func (s *FakeService) myVote(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	p := s.lookupPollLocked(w, r, u)
	if p == nil {
		return
	}

	var resp models.MyVoteResponse
	if opt, ok := s.votes[voteKey(p.rec.ID, voterKey(r, u))]; ok {
		resp.VotedOptionID = &opt
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Auth

func (s *FakeService) userByEmailLocked(email string) *fakeUser {
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *FakeService) lookup(w http.ResponseWriter, r *http.Request) {
	email := allowlist.Normalize(r.URL.Query().Get("email"))
	if email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := models.LookupResponse{Email: email}
	if u := s.userByEmailLocked(email); u != nil {
		resp.Exists = true
		resp.Username = u.Username
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

func (s *FakeService) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.userByEmailLocked(allowlist.Normalize(req.Email))
	if u == nil || u.password != req.Password {
		middleware.DetailResponse(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, _ := auth.GenerateToken()
	refresh, _ := auth.GenerateToken()
	s.access[access] = u.ID
	s.refresh[refresh] = u.ID
	middleware.JSONResponse(w, http.StatusOK, models.LoginResponse{Access: access, Refresh: refresh})
}

func (s *FakeService) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByEmailLocked(allowlist.Normalize(req.Email)) != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "A user with that email already exists")
		return
	}

	u := s.newUserLocked(req.Username, req.Email, req.Password)
	middleware.JSONResponse(w, http.StatusCreated, profileOf(u, req.Role))
}

func (s *FakeService) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refresh[req.Refresh]
	if !ok {
		middleware.DetailResponse(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}

	access, _ := auth.GenerateToken()
	s.access[access] = userID
	middleware.JSONResponse(w, http.StatusOK, models.RefreshResponse{Access: access})
}

func (s *FakeService) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.callerLocked(r)
	if u == nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, profileOf(u, ""))
}

func profileOf(u *fakeUser, role string) models.Profile {
	if role == "" {
		role = "voter"
	}
	return models.Profile{ID: u.ID, Username: u.Username, Email: u.Email, Role: role}
}

// RevokeToken invalidates an access or refresh token.
func (s *FakeService) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, token)
	delete(s.refresh, token)
}
