// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package pollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/danielhkuo/vote-x/models"
)

// ListPolls fetches GET /polls, following "next" links until exhausted or
// the page limit is reached. A bare JSON array is accepted as a single page.
func (c *Client) ListPolls(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	next := c.url("polls")

	for page := 0; next != ""; page++ {
		if page >= c.pageLimit {
			slog.Warn("poll listing truncated", "pages", page)
			break
		}

		var raw json.RawMessage
		if err := c.do(ctx, http.MethodGet, next, nil, &raw); err != nil {
			return nil, err
		}

		var records []models.PollRecord
		next = ""
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &records); err != nil {
				return nil, fmt.Errorf("failed to decode poll list: %w", err)
			}
		} else {
			var p models.PollPage
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("failed to decode poll page: %w", err)
			}
			records = p.Results
			if p.Next != nil && *p.Next != "" {
				n, err := c.resolve(*p.Next)
				if err != nil {
					return nil, err
				}
				next = n
			}
		}

		now := c.now()
		for _, r := range records {
			polls = append(polls, models.FromRecord(r, now))
		}
	}
	return polls, nil
}

// resolve turns a (possibly relative) next link into an absolute URL. Links
// to another scheme or host are refused so the bearer token never leaves
// the service.
func (c *Client) resolve(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", link, err)
	}
	abs := c.base.ResolveReference(u)
	if abs.Scheme != c.base.Scheme || abs.Host != c.base.Host {
		return "", fmt.Errorf("next link %q leaves %s: %w", link, c.base.Host, models.ErrNetworkFailure)
	}
	return abs.String(), nil
}

// GetPoll fetches GET /polls/{id}.
func (c *Client) GetPoll(ctx context.Context, pollID int64) (models.Poll, error) {
	var rec models.PollRecord
	if err := c.do(ctx, http.MethodGet, c.url("polls", id(pollID)), nil, &rec); err != nil {
		return models.Poll{}, err
	}
	return models.FromRecord(rec, c.now()), nil
}

// CreatePoll sends POST /polls and returns the created poll.
func (c *Client) CreatePoll(ctx context.Context, req models.CreatePollRequest) (models.Poll, error) {
	var rec models.PollRecord
	if err := c.do(ctx, http.MethodPost, c.url("polls"), req, &rec); err != nil {
		return models.Poll{}, err
	}
	return models.FromRecord(rec, c.now()), nil
}

// DeletePoll sends DELETE /polls/{id}. The caller must own the poll.
func (c *Client) DeletePoll(ctx context.Context, pollID int64) error {
	return c.do(ctx, http.MethodDelete, c.url("polls", id(pollID)), nil, nil)
}

// AllowedUsers fetches GET /polls/{id}/allowed-users.
func (c *Client) AllowedUsers(ctx context.Context, pollID int64) ([]models.SimpleUser, error) {
	users := []models.SimpleUser{}
	err := c.do(ctx, http.MethodGet, c.url("polls", id(pollID), "allowed-users"), nil, &users)
	return users, err
}

// AddAllowedUser sends POST /polls/{id}/allowed-users and returns the new list.
func (c *Client) AddAllowedUser(ctx context.Context, pollID int64, email string) ([]models.SimpleUser, error) {
	users := []models.SimpleUser{}
	err := c.do(ctx, http.MethodPost, c.url("polls", id(pollID), "allowed-users"),
		models.AllowedUserRequest{Email: email}, &users)
	return users, err
}

// RemoveAllowedUser sends DELETE /polls/{id}/allowed-users and returns the new list.
func (c *Client) RemoveAllowedUser(ctx context.Context, pollID int64, email string) ([]models.SimpleUser, error) {
	users := []models.SimpleUser{}
	err := c.do(ctx, http.MethodDelete, c.url("polls", id(pollID), "allowed-users"),
		models.AllowedUserRequest{Email: email}, &users)
	return users, err
}

// SubmitVote sends POST /votes for the calling identity.
func (c *Client) SubmitVote(ctx context.Context, optionID int64) error {
	return c.do(ctx, http.MethodPost, c.url("votes"), models.VoteRequest{Option: optionID}, nil)
}

// MyVote fetches GET /votes/me/{pollId}; nil means no vote recorded.
func (c *Client) MyVote(ctx context.Context, pollID int64) (*int64, error) {
	var resp models.MyVoteResponse
	if err := c.do(ctx, http.MethodGet, c.url("votes", "me", id(pollID)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.VotedOptionID, nil
}

// LookupUser fetches GET /auth/lookup?email=.
func (c *Client) LookupUser(ctx context.Context, email string) (models.LookupResponse, error) {
	u, err := url.Parse(c.url("auth", "lookup"))
	if err != nil {
		return models.LookupResponse{}, err
	}
	u.RawQuery = url.Values{"email": {email}}.Encode()

	var resp models.LookupResponse
	err = c.do(ctx, http.MethodGet, u.String(), nil, &resp)
	return resp, err
}
