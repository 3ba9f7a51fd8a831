package reconcile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielhkuo/vote-x/models"
)

const (
	optA int64 = 1
	optB int64 = 2
	optC int64 = 3
)

func newPoll() models.Poll {
	return models.Poll{
		ID:         42,
		Title:      "Lunch",
		Visibility: models.VisibilityPublic,
		Options: []models.PollOption{
			{ID: optA, Text: "A"},
			{ID: optB, Text: "B"},
			{ID: optC, Text: "C"},
		},
	}
}

func tallies(p models.Poll) []int64 {
	out := make([]int64, len(p.Options))
	for i, o := range p.Options {
		out[i] = o.Votes
	}
	return out
}

func ptr(v int64) *int64 { return &v }

func TestApplyFirstVote(t *testing.T) {
	for _, opt := range []int64{optA, optB, optC} {
		p, err := Apply(newPoll(), nil, opt)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if p.TotalVotes != 1 {
			t.Errorf("first vote for %d: total = %d, want 1", opt, p.TotalVotes)
		}
		o, _ := p.Option(opt)
		if o.Votes != 1 {
			t.Errorf("first vote for %d: tally = %d, want 1", opt, o.Votes)
		}
	}
}

func TestApplyChangeVote(t *testing.T) {
	p, _ := Apply(newPoll(), nil, optA)
	p, err := Apply(p, ptr(optA), optB)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if diff := cmp.Diff([]int64{0, 1, 0}, tallies(p)); diff != "" {
		t.Errorf("tallies mismatch (-want +got):\n%s", diff)
	}
	if p.TotalVotes != 1 {
		t.Errorf("change must not alter total, got %d", p.TotalVotes)
	}
}

func TestApplySameOptionIsNoop(t *testing.T) {
	p, _ := Apply(newPoll(), nil, optB)
	again, err := Apply(p, ptr(optB), optB)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if diff := cmp.Diff(p, again); diff != "" {
		t.Errorf("re-vote changed poll (-before +after):\n%s", diff)
	}
}

func TestApplyInvalidOption(t *testing.T) {
	before := newPoll()
	before.Options[0].Votes = 3
	before.TotalVotes = 3

	got, err := Apply(before, ptr(optA), 99)
	if !errors.Is(err, models.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if diff := cmp.Diff(before, got); diff != "" {
		t.Errorf("failed apply mutated poll (-want +got):\n%s", diff)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	p := newPoll()
	if _, err := Apply(p, nil, optA); err != nil {
		t.Fatal(err)
	}
	if p.Options[0].Votes != 0 || p.TotalVotes != 0 {
		t.Error("Apply mutated its input")
	}
}

func TestApplyNeverNegative(t *testing.T) {
	// Previous choice points at an option whose tally is already 0.
	p := newPoll()
	p.Options[1].Votes = 1
	p.TotalVotes = 1

	got, err := Apply(p, ptr(optA), optC)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range got.Options {
		if o.Votes < 0 {
			t.Fatalf("option %d went negative", o.ID)
		}
	}
	if got.TotalVotes != got.SumVotes() {
		t.Errorf("total %d != sum %d", got.TotalVotes, got.SumVotes())
	}
}

func TestApplyStalePreviousOption(t *testing.T) {
	p, _ := Apply(newPoll(), nil, optA)
	got, err := Apply(p, ptr(1000), optB)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalVotes != got.SumVotes() {
		t.Errorf("total %d != sum %d", got.TotalVotes, got.SumVotes())
	}
}

// Any sequence of votes by one voter conserves the total.
func TestCastConservesTotal(t *testing.T) {
	state := NewVoterState()
	p := newPoll()
	seq := []int64{optA, optB, optB, optC, optA, optA, optC, optB}

	for i, opt := range seq {
		var err error
		p, err = Cast(state, p, opt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if p.TotalVotes != p.SumVotes() {
			t.Fatalf("step %d: total %d != sum %d", i, p.TotalVotes, p.SumVotes())
		}
		if p.TotalVotes != 1 {
			t.Fatalf("step %d: one voter should count once, got %d", i, p.TotalVotes)
		}
		if got, _ := state.Get(p.ID); got != opt {
			t.Fatalf("step %d: state holds %d, want %d", i, got, opt)
		}
	}
	if state.Len() != 1 {
		t.Errorf("expected a single entry in voter state, got %d", state.Len())
	}
}

func TestCastInvalidOptionKeepsState(t *testing.T) {
	state := NewVoterState()
	p, _ := Cast(state, newPoll(), optA)

	if _, err := Cast(state, p, 77); !errors.Is(err, models.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if got, _ := state.Get(p.ID); got != optA {
		t.Errorf("state changed on failure: %d", got)
	}
}

// P has [A:0, B:0]. V1 votes A, switches to B, votes B again; V2 votes A.
func TestTwoVoterScenario(t *testing.T) {
	p := models.Poll{
		ID:      1,
		Options: []models.PollOption{{ID: optA, Text: "A"}, {ID: optB, Text: "B"}},
	}
	v1 := NewVoterState()
	v2 := NewVoterState()

	steps := []struct {
		voter     *VoterState
		option    int64
		wantTally []int64
		wantTotal int64
	}{
		{v1, optA, []int64{1, 0}, 1},
		{v1, optB, []int64{0, 1}, 1},
		{v1, optB, []int64{0, 1}, 1},
		{v2, optA, []int64{1, 1}, 2},
	}

	for i, s := range steps {
		var err error
		p, err = Cast(s.voter, p, s.option)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if diff := cmp.Diff(s.wantTally, tallies(p)); diff != "" {
			t.Errorf("step %d tallies (-want +got):\n%s", i, diff)
		}
		if p.TotalVotes != s.wantTotal {
			t.Errorf("step %d total = %d, want %d", i, p.TotalVotes, s.wantTotal)
		}
	}
}

func TestVoterState(t *testing.T) {
	var nilState *VoterState
	nilState.Set(1, 10)
	nilState.Delete(1)
	nilState.Replace(map[int64]int64{2: 20})
	if _, ok := nilState.Get(1); ok || nilState.Len() != 0 || len(nilState.Snapshot()) != 0 {
		t.Error("nil state should stay empty")
	}

	s := NewVoterState()
	s.Set(1, 10)
	s.Set(1, 11)
	s.Set(2, 20)

	if got, _ := s.Get(1); got != 11 {
		t.Errorf("Set should overwrite, got %d", got)
	}
	snap := s.Snapshot()
	snap[3] = 30
	if _, ok := s.Get(3); ok {
		t.Error("snapshot must be a copy")
	}

	s.Replace(map[int64]int64{5: 50})
	if s.Len() != 1 {
		t.Errorf("Replace should drop old entries, len = %d", s.Len())
	}
	s.Delete(5)
	if s.Len() != 0 {
		t.Error("Delete did not remove entry")
	}
}
