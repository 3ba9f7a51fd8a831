package render

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielhkuo/vote-x/access"
	"github.com/danielhkuo/vote-x/models"
)

func samplePoll() models.Poll {
	return models.Poll{
		ID:         7,
		Title:      "Team lunch",
		Visibility: models.VisibilityPublic,
		TotalVotes: 3,
		EndsIn:     "3 days",
		Options: []models.PollOption{
			{ID: 70, Text: "Pizza", Votes: 2},
			{ID: 71, Text: "A very long option label indeed", Votes: 1},
			{ID: 72, Text: "Tacos", Votes: 0},
		},
	}
}

func TestChart(t *testing.T) {
	got := Chart(samplePoll())
	want := []ChartRow{
		{OptionID: 70, Label: "Pizza", FullLabel: "Pizza", Votes: 2, Percentage: "66.7"},
		{OptionID: 71, Label: "A very long option l…", FullLabel: "A very long option label indeed", Votes: 1, Percentage: "33.3"},
		{OptionID: 72, Label: "Tacos", FullLabel: "Tacos", Votes: 0, Percentage: "0.0"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Chart mismatch (-want +got):\n%s", diff)
	}
}

func TestChartNoVotes(t *testing.T) {
	p := samplePoll()
	p.TotalVotes = 0
	for i := range p.Options {
		p.Options[i].Votes = 0
	}
	for _, row := range Chart(p) {
		if row.Percentage != "0" {
			t.Errorf("option %d: expected \"0\", got %q", row.OptionID, row.Percentage)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"exactly twenty runes", "exactly twenty runes"},
		{"twenty-one runes long", "twenty-one runes lon…"},
		{"ééééééééééééééééééééé", "éééééééééééééééééééé…"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, MaxLabelLen); got != tt.want {
			t.Errorf("Truncate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBadge(t *testing.T) {
	alice := access.Viewer{ID: 1, Email: "alice@x.com", Authenticated: true}
	allowed := []models.SimpleUser{{ID: 1, Username: "alice", Email: "alice@x.com"}}

	tests := []struct {
		name string
		poll models.Poll
		want string
	}{
		{"public", models.Poll{Visibility: models.VisibilityPublic}, BadgePublic},
		{"private", models.Poll{Visibility: models.VisibilityPrivate}, BadgePrivate},
		{"private owned", models.Poll{Visibility: models.VisibilityPrivate, IsOwner: true}, BadgePrivateOwned},
		{"restricted allowed", models.Poll{Visibility: models.VisibilityRestricted, AllowedUsers: allowed}, BadgeAllowed},
		{"restricted", models.Poll{Visibility: models.VisibilityRestricted}, BadgeRestricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Badge(tt.poll, alice); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVotes(t *testing.T) {
	tests := map[int64]string{
		0:    "0 votes",
		1:    "1 vote",
		1204: "1,204 votes",
	}
	for n, want := range tests {
		if got := Votes(n); got != want {
			t.Errorf("Votes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestListing(t *testing.T) {
	out := Listing([]models.Poll{samplePoll()}, access.Guest)
	for _, want := range []string{"#7", "Team lunch", "[Public]", models.CategoryUncategorized, "3 votes", "3 days"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}

	if out := Listing(nil, access.Guest); !strings.Contains(out, "No polls found.") {
		t.Errorf("unexpected empty listing: %q", out)
	}
}

func TestDetail(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := samplePoll()
	p.Visibility = models.VisibilityRestricted
	p.IsOwner = true
	p.AllowedUsers = []models.SimpleUser{{ID: 2, Username: "bob", Email: "bob@x.com"}}

	out := Detail(p, access.Guest, 70, now)
	for _, want := range []string{"Team lunch", "[Restricted]", "✓", "66.7%", "Allowed users", "bob@x.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}

	expired := now.Add(-time.Hour)
	p.ExpiresAt = &expired
	if out := Detail(p, access.Guest, 0, now); !strings.Contains(out, models.EndsInEnded) {
		t.Errorf("expired poll not marked ended:\n%s", out)
	}
}

func TestDetailHidesAllowlistFromOthers(t *testing.T) {
	p := samplePoll()
	p.Visibility = models.VisibilityRestricted
	p.AllowedUsers = []models.SimpleUser{{ID: 2, Username: "bob", Email: "bob@x.com"}}

	if out := Detail(p, access.Guest, 0, time.Now()); strings.Contains(out, "bob@x.com") {
		t.Errorf("allowlist shown to a non-owner:\n%s", out)
	}
}
