package registry

import (
	"testing"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/adapter/housebamzy"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/clock"
	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

func newMatch(t *testing.T, id string) *matchcore.Match {
	t.Helper()
	m, err := matchcore.New(matchcore.Config{
		MatchID:  id,
		HomeTeam: "Alpha",
		AwayTeam: "Beta",
		Rounds:   1,
		QPR:      1,
		TPQ:      []time.Duration{5 * time.Second},
	}, housebamzy.New(), clock.Real{})
	if err != nil {
		t.Fatalf("matchcore.New: %v", err)
	}
	return m
}

func TestAddRejectsDuplicateID(t *testing.T) {
	r := New()
	if err := r.Add(newMatch(t, "m1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(newMatch(t, "m1")); err == nil {
		t.Fatalf("expected conflict error for duplicate id")
	}
}

func TestLookupSilentVsError(t *testing.T) {
	r := New()
	m, err := r.Lookup("missing", true)
	if m != nil || err != nil {
		t.Fatalf("silent lookup of missing id should return (nil, nil), got (%v, %v)", m, err)
	}
	_, err = r.Lookup("missing", false)
	if err == nil {
		t.Fatalf("expected not-found error for non-silent lookup of missing id")
	}
}

func TestRemoveAndClear(t *testing.T) {
	r := New()
	_ = r.Add(newMatch(t, "m1"))
	_ = r.Add(newMatch(t, "m2"))
	if !r.Remove("m1") {
		t.Fatalf("expected Remove to report true for an existing id")
	}
	if r.Remove("m1") {
		t.Fatalf("expected Remove to report false for an id removed already")
	}
	if r.Remove("missing") {
		t.Fatalf("expected Remove to report false for an unknown id")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 match after remove, got %d", r.Len())
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("expected 0 matches after clear, got %d", r.Len())
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	r := New()
	_ = r.Add(newMatch(t, "m1"))
	_ = r.Add(newMatch(t, "m2"))
	_ = r.Add(newMatch(t, "m3"))
	all := r.All()
	ids := []string{all[0].MatchID(), all[1].MatchID(), all[2].MatchID()}
	want := []string{"m1", "m2", "m3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}
