package store

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"github.com/danielhkuo/vote-x/auth"
	"github.com/danielhkuo/vote-x/db"
	"github.com/danielhkuo/vote-x/models"
	"github.com/danielhkuo/vote-x/pollapi"
	"github.com/danielhkuo/vote-x/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServiceStore(t *testing.T, svc *testutil.FakeService, token, email string, opts ...Option) (*Store, *auth.Session) {
	t.Helper()

	session := testutil.NewTestSession(t, token, email)
	client, err := pollapi.New(svc.URL(), session.Tokens())
	if err != nil {
		t.Fatal(err)
	}
	s := New(session, append([]Option{WithService(client)}, opts...)...)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return s, session
}

func validDraft() models.PollDraft {
	return models.PollDraft{
		Title:       "Team lunch",
		Description: "Where should we eat on Friday?",
		Category:    "Food",
		Duration:    "1 week",
		Visibility:  models.VisibilityPublic,
		Options:     []string{"Pizza", "Tacos", "Sushi"},

		AllowGuestVotes: true,
	}
}

func poll(id int64, title string, category *string, votes ...int64) models.Poll {
	p := models.Poll{ID: id, Title: title, Category: category, Visibility: models.VisibilityPublic, AllowGuestVotes: true}
	for i, v := range votes {
		p.Options = append(p.Options, models.PollOption{ID: id*10 + int64(i), Text: strconv.Itoa(i), Votes: v})
		p.TotalVotes += v
	}
	return p
}

func TestLoadReplacesCollection(t *testing.T) {
	s := New(nil)
	s.Load([]models.Poll{poll(1, "one", nil, 0, 0), poll(2, "two", nil, 0, 0)})
	s.Load([]models.Poll{poll(3, "three", nil, 0, 0), poll(3, "dup", nil, 0, 0)})

	got := s.List()
	if len(got) != 1 || got[0].Title != "three" {
		t.Errorf("expected only poll three, got %+v", got)
	}
	if _, err := s.Get(1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for dropped poll, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New(nil)
	s.Load([]models.Poll{poll(1, "one", nil, 3, 4)})

	p, err := s.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	p.Options[0].Votes = 100

	again, _ := s.Get(1)
	if again.Options[0].Votes != 3 {
		t.Error("mutating a returned poll changed the store")
	}
}

func TestFilterAndCategories(t *testing.T) {
	food, work := "Food", "Work"
	s := New(nil)
	s.Load([]models.Poll{
		poll(1, "Lunch spot", &food, 0, 0),
		poll(2, "Standup time", &work, 0, 0),
		poll(3, "Dinner spot", &food, 0, 0),
		poll(4, "Misc", nil, 0, 0),
	})

	tests := []struct {
		name     string
		search   string
		category string
		want     []int64
	}{
		{"everything", "", models.CategoryAll, []int64{1, 2, 3, 4}},
		{"empty category means all", "", "", []int64{1, 2, 3, 4}},
		{"by category", "", "Food", []int64{1, 3}},
		{"uncategorized", "", models.CategoryUncategorized, []int64{4}},
		{"search is case-insensitive", "SPOT", models.CategoryAll, []int64{1, 3}},
		{"search within category", "dinner", "Food", []int64{3}},
		{"no match", "zzz", models.CategoryAll, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int64
			for p := range s.Filter(tt.search, tt.category) {
				got = append(got, p.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
		})
	}

	want := []string{"Food", models.CategoryUncategorized, "Work"}
	if diff := cmp.Diff(want, s.Categories()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterRestartable(t *testing.T) {
	s := New(nil)
	s.Load([]models.Poll{poll(1, "a", nil, 0, 0), poll(2, "b", nil, 0, 0)})

	seq := s.Filter("", models.CategoryAll)
	collect := func() []int64 {
		var ids []int64
		for p := range seq {
			ids = append(ids, p.ID)
		}
		return ids
	}

	first, second := collect(), collect()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second range differs (-first +second):\n%s", diff)
	}

	for p := range seq {
		if p.ID != 1 {
			t.Errorf("early break yielded %d", p.ID)
		}
		break
	}
}

func TestDemoCreateAndVote(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	p, err := s.Create(ctx, validDraft())
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOwner || p.CategoryLabel() != "Food" || len(p.Options) != 3 || p.ExpiresAt == nil {
		t.Errorf("unexpected demo poll %+v", p)
	}

	second := validDraft()
	second.Title = "Second poll"
	q, err := s.Create(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if s.List()[0].ID != q.ID {
		t.Error("new poll should be first")
	}

	a, b := p.Options[0].ID, p.Options[1].ID
	steps := []struct {
		option int64
		tally  []int64
		total  int64
	}{
		{a, []int64{1, 0, 0}, 1},
		{b, []int64{0, 1, 0}, 1},
		{b, []int64{0, 1, 0}, 1},
		{a, []int64{1, 0, 0}, 1},
	}
	for i, step := range steps {
		got, err := s.Vote(ctx, p.ID, step.option)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		var tally []int64
		for _, o := range got.Options {
			tally = append(tally, o.Votes)
		}
		if !slices.Equal(tally, step.tally) || got.TotalVotes != step.total {
			t.Errorf("step %d: tally %v total %d, want %v %d", i, tally, got.TotalVotes, step.tally, step.total)
		}
		if choice, _ := s.Choice(p.ID); choice != step.option {
			t.Errorf("step %d: choice %d, want %d", i, choice, step.option)
		}
	}
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	svc := testutil.NewFakeService(t)
	_, token := svc.AddUser("alice", "alice@x.com", "pw")
	s, _ := newServiceStore(t, svc, token, "alice@x.com")
	before := len(svc.Requests())

	short := validDraft()
	short.Title = "Hi"
	if _, err := s.Create(context.Background(), short); !errors.Is(err, models.ErrInvalidDraft) {
		t.Errorf("expected ErrInvalidDraft, got %v", err)
	}

	restricted := validDraft()
	restricted.Visibility = models.VisibilityRestricted
	if _, err := s.Create(context.Background(), restricted); !errors.Is(err, models.ErrEmptyAllowlist) {
		t.Errorf("expected ErrEmptyAllowlist, got %v", err)
	}

	if n := len(svc.Requests()); n != before {
		t.Errorf("invalid drafts made %d requests", n-before)
	}
}

func TestServiceCreate(t *testing.T) {
	svc := testutil.NewFakeService(t)
	_, token := svc.AddUser("alice", "alice@x.com", "pw")
	svc.AddUser("bob", "bob@x.com", "pw")
	s, _ := newServiceStore(t, svc, token, "alice@x.com")

	d := validDraft()
	d.Visibility = models.VisibilityRestricted
	d.AllowedUsers = []string{" Bob@X.com "}

	p, err := s.Create(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOwner || !p.Allows("bob@x.com") {
		t.Errorf("unexpected created poll %+v", p)
	}
	if got, _ := s.Get(p.ID); got.ID != p.ID {
		t.Error("created poll not cached")
	}
}

// recordingService knows a fixed set of accounts and records lookups and
// create requests.
type recordingService struct {
	Service
	known   map[string]bool
	lookups []string
	created []models.CreatePollRequest
}

func (r *recordingService) LookupUser(_ context.Context, email string) (models.LookupResponse, error) {
	r.lookups = append(r.lookups, email)
	return models.LookupResponse{Exists: r.known[email], Email: email}, nil
}

func (r *recordingService) CreatePoll(_ context.Context, req models.CreatePollRequest) (models.Poll, error) {
	r.created = append(r.created, req)
	p := models.Poll{ID: 1, Title: req.Title, Visibility: req.Visibility, IsOwner: true}
	for _, e := range req.AllowedUsers {
		p.AllowedUsers = append(p.AllowedUsers, models.SimpleUser{Email: e})
	}
	return p, nil
}

func TestCreateRestrictedAllowlist(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		wantErr     error
		wantSent    []string
		wantLookups []string
	}{
		{
			name:        "normalized",
			allowed:     []string{"  Alice@X.COM ", "bob@x.com"},
			wantSent:    []string{"alice@x.com", "bob@x.com"},
			wantLookups: []string{"alice@x.com", "bob@x.com"},
		},
		{
			name:        "duplicate",
			allowed:     []string{"  Alice@X.COM ", "alice@x.com"},
			wantErr:     models.ErrDuplicateUser,
			wantLookups: []string{"alice@x.com"},
		},
		{
			name:        "unknown account",
			allowed:     []string{"alice@x.com", "ghost@nowhere.io"},
			wantErr:     models.ErrUnknownUser,
			wantLookups: []string{"alice@x.com", "ghost@nowhere.io"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &recordingService{known: map[string]bool{"alice@x.com": true, "bob@x.com": true}}
			s := New(testutil.NewTestSession(t, "token", "alice@x.com"), WithService(svc))

			d := validDraft()
			d.Visibility = models.VisibilityRestricted
			d.AllowedUsers = tt.allowed

			_, err := s.Create(context.Background(), d)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				if len(svc.created) != 0 {
					t.Errorf("poll created despite invalid allowlist: %+v", svc.created)
				}
				if s.Len() != 0 {
					t.Error("rejected poll was cached")
				}
			} else {
				if err != nil {
					t.Fatal(err)
				}
				if len(svc.created) != 1 {
					t.Fatalf("expected one create request, got %d", len(svc.created))
				}
				if diff := cmp.Diff(tt.wantSent, svc.created[0].AllowedUsers); diff != "" {
					t.Errorf("sent allowlist mismatch (-want +got):\n%s", diff)
				}
			}
			if diff := cmp.Diff(tt.wantLookups, svc.lookups); diff != "" {
				t.Errorf("lookups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDemoCreateRestrictedAllowlist(t *testing.T) {
	s := New(nil)

	d := validDraft()
	d.Visibility = models.VisibilityRestricted
	d.AllowedUsers = []string{"  Alice@X.COM ", "alice@x.com"}
	if _, err := s.Create(context.Background(), d); !errors.Is(err, models.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	d.AllowedUsers = []string{"  Alice@X.COM "}
	p, err := s.Create(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Allows("alice@x.com") {
		t.Errorf("lower-case viewer not allowed: %+v", p.AllowedUsers)
	}
}

func TestServiceVoteServerWins(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	bob, _ := svc.AddUser("bob", "bob@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{Title: "Lunch", Options: []string{"Pizza", "Tacos"}, OwnerID: alice.ID})

	s, _ := newServiceStore(t, svc, token, "alice@x.com")

	// a vote the cache has not seen
	if err := svc.CastVote(bob.ID, rec.Options[1].ID); err != nil {
		t.Fatal(err)
	}

	got, err := s.Vote(context.Background(), rec.ID, rec.Options[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	server, _ := svc.Poll(rec.ID)
	want := models.FromRecord(server, time.Now())
	want.IsOwner = true
	ignore := cmpopts.IgnoreFields(models.Poll{}, "EndsIn", "CreatedAt")
	if diff := cmp.Diff(want, got, ignore); diff != "" {
		t.Errorf("vote result should be the server poll (-want +got):\n%s", diff)
	}
	cached, _ := s.Get(rec.ID)
	if diff := cmp.Diff(got, cached); diff != "" {
		t.Errorf("cache differs from returned poll (-returned +cached):\n%s", diff)
	}
	if got.TotalVotes != 2 {
		t.Errorf("expected 2 votes on the server, got %d", got.TotalVotes)
	}
}

func TestServiceVoteRollback(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{Title: "Lunch", Options: []string{"Pizza", "Tacos"}, OwnerID: alice.ID})
	a, b := rec.Options[0].ID, rec.Options[1].ID

	s, _ := newServiceStore(t, svc, token, "alice@x.com")
	ctx := context.Background()

	if _, err := s.Vote(ctx, rec.ID, a); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Get(rec.ID)

	svc.FailNext("POST", "/votes", http.StatusInternalServerError)
	_, err := s.Vote(ctx, rec.ID, b)
	if !errors.Is(err, models.ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}

	after, _ := s.Get(rec.ID)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("failed vote changed the poll (-before +after):\n%s", diff)
	}
	if choice, _ := s.Choice(rec.ID); choice != a {
		t.Errorf("failed vote changed the choice to %d", choice)
	}
}

func TestServiceVoteRollbackFirstVote(t *testing.T) {
	svc := testutil.NewFakeService(t)
	rec := svc.AddPoll(testutil.PollSpec{Title: "Lunch", Options: []string{"Pizza", "Tacos"}, AllowGuestVotes: true})
	s, _ := newServiceStore(t, svc, "", "")
	before, _ := s.Get(rec.ID)

	svc.FailNext("POST", "/votes", http.StatusServiceUnavailable)
	if _, err := s.Vote(context.Background(), rec.ID, rec.Options[0].ID); err == nil {
		t.Fatal("expected error")
	}

	after, _ := s.Get(rec.ID)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("failed vote changed the poll (-before +after):\n%s", diff)
	}
	if _, ok := s.Choice(rec.ID); ok {
		t.Error("failed first vote left a choice behind")
	}
}

func TestServiceVoteRefetchFailureKeepsVote(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{Title: "Lunch", Options: []string{"Pizza", "Tacos"}, OwnerID: alice.ID})
	s, _ := newServiceStore(t, svc, token, "alice@x.com")

	svc.FailNext("GET", "/polls/"+strconv.FormatInt(rec.ID, 10), http.StatusBadGateway)
	got, err := s.Vote(context.Background(), rec.ID, rec.Options[1].ID)
	if err != nil {
		t.Fatalf("refetch failure should not fail the vote: %v", err)
	}
	if got.Options[1].Votes != 1 || got.TotalVotes != 1 {
		t.Errorf("expected the optimistic tally, got %+v", got)
	}
}

func TestVoteRejections(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	past := time.Now().Add(-time.Hour)
	open := svc.AddPoll(testutil.PollSpec{Title: "Open", Options: []string{"a", "b"}, OwnerID: alice.ID})
	expired := svc.AddPoll(testutil.PollSpec{Title: "Closed", Options: []string{"a", "b"}, ExpiresAt: &past, OwnerID: alice.ID})

	member, _ := newServiceStore(t, svc, token, "alice@x.com")
	guest, _ := newServiceStore(t, svc, "", "")

	tests := []struct {
		name   string
		store  *Store
		poll   int64
		option int64
		want   error
	}{
		{"unknown poll", member, 9999, 1, models.ErrNotFound},
		{"unknown option", member, open.ID, 9999, models.ErrInvalidOption},
		{"expired", member, expired.ID, expired.Options[0].ID, models.ErrPollExpired},
		{"guest on members-only poll", guest, open.ID, open.Options[0].ID, models.ErrNotPermitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := svc.CountRequests("POST", "/votes")
			if _, err := tt.store.Vote(context.Background(), tt.poll, tt.option); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if svc.CountRequests("POST", "/votes") != before {
				t.Error("rejected vote reached the service")
			}
		})
	}
}

func TestRestrictedPollGating(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, aliceToken := svc.AddUser("alice", "alice@x.com", "pw")
	_, bobToken := svc.AddUser("bob", "bob@x.com", "pw")
	_, carolToken := svc.AddUser("carol", "carol@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{
		Title: "Secret", Visibility: models.VisibilityRestricted, Options: []string{"a", "b"},
		OwnerID: alice.ID, Allowed: []string{"bob@x.com"},
	})

	owner, _ := newServiceStore(t, svc, aliceToken, "alice@x.com")
	allowed, _ := newServiceStore(t, svc, bobToken, "bob@x.com")
	other, _ := newServiceStore(t, svc, carolToken, "carol@x.com")

	if _, err := other.Get(rec.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("outsider should not see the poll, got %v", err)
	}
	if _, err := allowed.Vote(context.Background(), rec.ID, rec.Options[0].ID); err != nil {
		t.Errorf("allowed user vote failed: %v", err)
	}
	if err := allowed.Remove(context.Background(), rec.ID); !errors.Is(err, models.ErrNotPermitted) {
		t.Errorf("allowed user should not manage the poll, got %v", err)
	}
	if _, err := owner.Vote(context.Background(), rec.ID, rec.Options[1].ID); err != nil {
		t.Errorf("owner vote failed: %v", err)
	}
}

func TestRemove(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	mine := svc.AddPoll(testutil.PollSpec{Title: "Mine", Options: []string{"a", "b"}, OwnerID: alice.ID})
	theirs := svc.AddPoll(testutil.PollSpec{Title: "Theirs", Options: []string{"a", "b"}})

	s, _ := newServiceStore(t, svc, token, "alice@x.com")
	ctx := context.Background()

	if err := s.Remove(ctx, theirs.ID); !errors.Is(err, models.ErrNotPermitted) {
		t.Errorf("expected ErrNotPermitted, got %v", err)
	}
	if svc.CountRequests("DELETE", "/polls/"+strconv.FormatInt(theirs.ID, 10)) != 0 {
		t.Error("non-owner delete reached the service")
	}

	path := "/polls/" + strconv.FormatInt(mine.ID, 10)
	svc.FailNext("DELETE", path, http.StatusInternalServerError)
	if err := s.Remove(ctx, mine.ID); err == nil {
		t.Fatal("expected delete failure")
	}
	if _, err := s.Get(mine.ID); err != nil {
		t.Errorf("poll removed although delete failed: %v", err)
	}

	if err := s.Remove(ctx, mine.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(mine.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("poll still cached after delete: %v", err)
	}
	if err := s.Remove(ctx, mine.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second remove: expected ErrNotFound, got %v", err)
	}
}

func TestAllowlistOps(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	svc.AddUser("bob", "bob@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{
		Title: "Secret", Visibility: models.VisibilityRestricted, Options: []string{"a", "b"},
		OwnerID: alice.ID, Allowed: []string{"alice@x.com"},
	})

	s, _ := newServiceStore(t, svc, token, "alice@x.com")
	ctx := context.Background()

	users, err := s.AllowedUsers(ctx, rec.ID)
	if err != nil || len(users) != 1 {
		t.Fatalf("AllowedUsers = %+v, %v", users, err)
	}

	if _, err := s.AddAllowedUser(ctx, rec.ID, "ALICE@x.com "); !errors.Is(err, models.ErrDuplicateUser) {
		t.Errorf("expected ErrDuplicateUser, got %v", err)
	}
	if svc.CountRequests("GET", "/auth/lookup") != 0 {
		t.Error("duplicate check should happen before lookup")
	}
	if _, err := s.AddAllowedUser(ctx, rec.ID, "ghost@x.com"); !errors.Is(err, models.ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}

	users, err = s.AddAllowedUser(ctx, rec.ID, " Bob@X.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 allowed users, got %+v", users)
	}
	if p, _ := s.Get(rec.ID); !p.Allows("bob@x.com") {
		t.Error("cached allowlist not updated")
	}

	if _, err := s.RemoveAllowedUser(ctx, rec.ID, "bob@x.com"); err != nil {
		t.Fatal(err)
	}
	if p, _ := s.Get(rec.ID); p.Allows("bob@x.com") {
		t.Error("cached allowlist still has bob")
	}
}

func TestAllowlistOpsRequireOwner(t *testing.T) {
	svc := testutil.NewFakeService(t)
	rec := svc.AddPoll(testutil.PollSpec{Title: "Open", Options: []string{"a", "b"}})
	s, _ := newServiceStore(t, svc, "", "")

	if _, err := s.AddAllowedUser(context.Background(), rec.ID, "x@x.com"); !errors.Is(err, models.ErrNotPermitted) {
		t.Errorf("expected ErrNotPermitted, got %v", err)
	}
}

func TestSyncVotes(t *testing.T) {
	svc := testutil.NewFakeService(t)
	alice, token := svc.AddUser("alice", "alice@x.com", "pw")
	var recs []models.PollRecord
	for i := range 6 {
		recs = append(recs, svc.AddPoll(testutil.PollSpec{Title: "Poll " + strconv.Itoa(i), Options: []string{"a", "b"}}))
	}
	svc.CastVote(alice.ID, recs[0].Options[1].ID)
	svc.CastVote(alice.ID, recs[3].Options[0].ID)

	s, _ := newServiceStore(t, svc, token, "alice@x.com", WithSyncWorkers(2))
	if err := s.SyncVotes(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := map[int64]int64{
		recs[0].ID: recs[0].Options[1].ID,
		recs[3].ID: recs[3].Options[0].ID,
	}
	if diff := cmp.Diff(want, s.Choices()); diff != "" {
		t.Errorf("synced choices mismatch (-want +got):\n%s", diff)
	}

	guest, _ := newServiceStore(t, svc, "", "")
	before := len(svc.Requests())
	if err := guest.SyncVotes(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(svc.Requests()) != before {
		t.Error("guest sync should not call the service")
	}
}

func TestSyncVotesFailure(t *testing.T) {
	svc := testutil.NewFakeService(t)
	_, token := svc.AddUser("alice", "alice@x.com", "pw")
	rec := svc.AddPoll(testutil.PollSpec{Title: "Poll", Options: []string{"a", "b"}})
	s, _ := newServiceStore(t, svc, token, "alice@x.com")

	svc.FailNext("GET", "/votes/me/"+strconv.FormatInt(rec.ID, 10), http.StatusInternalServerError)
	if err := s.SyncVotes(context.Background()); !errors.Is(err, models.ErrNetworkFailure) {
		t.Errorf("expected ErrNetworkFailure, got %v", err)
	}
}

func TestChoicesPersistAcrossStores(t *testing.T) {
	ctx := context.Background()
	repo := db.NewChoices(testutil.SetupTestDB(t))

	s := New(nil, WithChoices(repo))
	p, err := s.Create(ctx, validDraft())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Vote(ctx, p.ID, p.Options[2].ID); err != nil {
		t.Fatal(err)
	}

	restored := New(nil, WithChoices(repo))
	if err := restored.RestoreChoices(ctx); err != nil {
		t.Fatal(err)
	}
	if choice, ok := restored.Choice(p.ID); !ok || choice != p.Options[2].ID {
		t.Errorf("restored choice = %d, %v", choice, ok)
	}

	if err := s.Remove(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	choices, _ := repo.LoadChoices(ctx)
	if _, ok := choices[p.ID]; ok {
		t.Error("choice kept after the poll was removed")
	}
}
