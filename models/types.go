package models

import (
	"strings"
	"time"
)

// Visibility constants
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityRestricted Visibility = "restricted"
)

// Valid reports whether v is one of the three known modes.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityRestricted:
		return true
	}
	return false
}

// Category labels
const (
	CategoryAll           = "all"
	CategoryUncategorized = "Uncategorized"
	CategoryDefault       = "General"
)

// Request types

type CreatePollRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	ExpiresAt       *time.Time `json:"expires_at"`
	Visibility      Visibility `json:"visibility"`
	AllowGuestVotes bool       `json:"allow_guest_votes"`
	Options         []string   `json:"options"`
	AllowedUsers    []string   `json:"allowed_users,omitempty"`
}

type VoteRequest struct {
	Option int64 `json:"option"`
}

type AllowedUserRequest struct {
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// Response types

// PollPage is the paginated envelope returned by GET /polls
type PollPage struct {
	Count    int          `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []PollRecord `json:"results"`
}

type MyVoteResponse struct {
	VotedOptionID *int64 `json:"voted_option_id"`
}

type LookupResponse struct {
	Exists   bool   `json:"exists"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Wire types

// PollRecord is a poll as the remote service serializes it
type PollRecord struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Category        *string        `json:"category"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       *time.Time     `json:"expires_at"`
	EndsIn          string         `json:"ends_in"`
	TotalVotes      int64          `json:"total_votes"`
	Visibility      Visibility     `json:"visibility"`
	AllowGuestVotes bool           `json:"allow_guest_votes"`
	IsOwner         bool           `json:"is_owner"`
	AllowedUsers    []SimpleUser   `json:"allowed_users"`
	Options         []OptionRecord `json:"options"`
}

type OptionRecord struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

// Domain types

type SimpleUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type PollOption struct {
	ID    int64
	Text  string
	Votes int64
}

// Poll is the client-side view of a poll. IsOwner is computed by the
// service for the viewer that fetched it.
type Poll struct {
	ID              int64
	Title           string
	Description     string
	Category        *string
	Visibility      Visibility
	AllowGuestVotes bool
	IsOwner         bool
	AllowedUsers    []SimpleUser
	Options         []PollOption
	TotalVotes      int64
	ExpiresAt       *time.Time
	EndsIn          string
	CreatedAt       time.Time
}

// CategoryLabel returns the category used for filtering and grouping.
func (p Poll) CategoryLabel() string {
	if p.Category == nil {
		return CategoryUncategorized
	}
	return *p.Category
}

// Expired reports whether the poll's end time has passed at now.
func (p Poll) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// Option returns the option with the given id.
func (p Poll) Option(id int64) (PollOption, bool) {
	for _, o := range p.Options {
		if o.ID == id {
			return o, true
		}
	}
	return PollOption{}, false
}

// SumVotes adds up the option tallies.
func (p Poll) SumVotes() int64 {
	var sum int64
	for _, o := range p.Options {
		sum += o.Votes
	}
	return sum
}

// Allows reports whether email is on the poll's allowlist. The comparison is
// exact; addresses are lower-cased when they are added.
func (p Poll) Allows(email string) bool {
	if email == "" {
		return false
	}
	for _, u := range p.AllowedUsers {
		if u.Email == email {
			return true
		}
	}
	return false
}

// Matches reports whether the poll passes a search/category filter.
// Search is a case-insensitive substring match on title or description;
// the category "all" matches everything.
func (p Poll) Matches(search, category string) bool {
	if category != "" && category != CategoryAll && p.CategoryLabel() != category {
		return false
	}
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

// Clone returns a deep copy so callers cannot mutate cached state.
func (p Poll) Clone() Poll {
	c := p
	if p.Category != nil {
		cat := *p.Category
		c.Category = &cat
	}
	if p.ExpiresAt != nil {
		exp := *p.ExpiresAt
		c.ExpiresAt = &exp
	}
	if p.Options != nil {
		c.Options = append([]PollOption(nil), p.Options...)
	}
	if p.AllowedUsers != nil {
		c.AllowedUsers = append([]SimpleUser(nil), p.AllowedUsers...)
	}
	return c
}

// FromRecord converts a service record into a Poll. now is used to derive
// EndsIn when the service did not send one.
func FromRecord(r PollRecord, now time.Time) Poll {
	p := Poll{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Visibility:      r.Visibility,
		AllowGuestVotes: r.AllowGuestVotes,
		IsOwner:         r.IsOwner,
		TotalVotes:      r.TotalVotes,
		ExpiresAt:       r.ExpiresAt,
		EndsIn:          r.EndsIn,
		CreatedAt:       r.CreatedAt,
		AllowedUsers:    append([]SimpleUser{}, r.AllowedUsers...),
		Options:         make([]PollOption, 0, len(r.Options)),
	}
	for _, o := range r.Options {
		p.Options = append(p.Options, PollOption{ID: o.ID, Text: o.Text, Votes: o.Votes})
	}
	if p.EndsIn == "" {
		p.EndsIn = EndsIn(r.ExpiresAt, now)
	}
	return p.Clone()
}

// ToRecord is the inverse of FromRecord.
func ToRecord(p Poll) PollRecord {
	r := PollRecord{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Category:        p.Category,
		CreatedAt:       p.CreatedAt,
		ExpiresAt:       p.ExpiresAt,
		EndsIn:          p.EndsIn,
		TotalVotes:      p.TotalVotes,
		Visibility:      p.Visibility,
		AllowGuestVotes: p.AllowGuestVotes,
		IsOwner:         p.IsOwner,
		AllowedUsers:    append([]SimpleUser{}, p.AllowedUsers...),
		Options:         make([]OptionRecord, 0, len(p.Options)),
	}
	for _, o := range p.Options {
		r.Options = append(r.Options, OptionRecord{ID: o.ID, Text: o.Text, Votes: o.Votes})
	}
	return r
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
