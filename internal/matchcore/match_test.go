package matchcore

import (
	"strconv"
	"testing"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/clock"
)

// fakeAdapter is a minimal Adapter used to exercise Match in isolation from
// any concrete ruleset.
type fakeAdapter struct {
	recess time.Duration
}

func (a *fakeAdapter) Name() string { return "fake" }

func (a *fakeAdapter) FetchQuestions(shape MatchShape) ([]Question, error) {
	total := shape.Rounds * shape.QPR
	out := make([]Question, 0, total)
	for r := 0; r < shape.Rounds; r++ {
		for i := 0; i < shape.QPR; i++ {
			out = append(out, Question{
				QuestionID: "q-" + strconv.Itoa(r+1) + "-" + strconv.Itoa(i+1),
				Text:       "question text",
				Points:     10,
				Duration:   shape.TPQ[r],
			})
		}
	}
	return out, nil
}

func (a *fakeAdapter) PickCorrectAnswers(q Question, answers []Answer) ([]Answer, error) {
	var out []Answer
	for _, ans := range answers {
		if ans.SelectedOption == q.CorrectOption {
			out = append(out, ans)
		}
	}
	return out, nil
}

func (a *fakeAdapter) RecordCorrectAnswers(sink ScoreSink, q Question, graded []Answer, basePoints float64) error {
	for _, ans := range graded {
		if ans.PlayerInfo.UserAffiliation == sink.HomeTeam() {
			sink.CreditHome(ans, basePoints, 0)
		} else {
			sink.CreditAway(ans, basePoints, 0)
		}
	}
	return nil
}

func (a *fakeAdapter) RecessDuration() time.Duration { return a.recess }

func newTestMatch(t *testing.T, clk clock.Clock) *Match {
	t.Helper()
	m, err := New(Config{
		MatchID:  "m1",
		HomeTeam: "Alpha",
		AwayTeam: "Beta",
		Rounds:   2,
		QPR:      2,
		TPQ:      []time.Duration{5 * time.Second, 5 * time.Second},
	}, &fakeAdapter{recess: time.Second}, clk)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestNewValidatesRequiredFields(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	cases := []Config{
		{HomeTeam: "A", AwayTeam: "B", Rounds: 1, QPR: 1, TPQ: []time.Duration{time.Second}},
		{MatchID: "x", AwayTeam: "B", Rounds: 1, QPR: 1, TPQ: []time.Duration{time.Second}},
		{MatchID: "x", HomeTeam: "A", AwayTeam: "B", Rounds: 0, QPR: 1, TPQ: []time.Duration{time.Second}},
		{MatchID: "x", HomeTeam: "A", AwayTeam: "B", Rounds: 2, QPR: 1, TPQ: []time.Duration{time.Second}},
	}
	for i, c := range cases {
		if _, err := New(c, &fakeAdapter{}, clk); err == nil {
			t.Errorf("case %d: expected validation error, got nil", i)
		}
	}
}

func TestLifecycleUpcomingToStandbyToActive(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	m := newTestMatch(t, clk)

	if m.State() != StateUpcoming {
		t.Fatalf("expected Upcoming, got %v", m.State())
	}
	if err := m.ChangeState(StateStandby); err != nil {
		t.Fatalf("Upcoming->Standby: %v", err)
	}
	if len(m.unused) != 4 {
		t.Fatalf("expected 4 fetched questions, got %d", len(m.unused))
	}

	if err := m.ChangeState(StateActive); err != nil {
		t.Fatalf("Standby->Active: %v", err)
	}
	if _, err := m.GetCurrentQuestion(); err == nil {
		t.Fatalf("expected retry-gated error reading the first question before cooldown elapses")
	}
	clk.Advance(10 * time.Second)
	if _, err := m.GetCurrentQuestion(); err != nil {
		t.Fatalf("GetCurrentQuestion after cooldown: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("expected Active, got %v", m.State())
	}
	if m.current == nil {
		t.Fatalf("expected a current question to be prepped on start")
	}
}

func TestStoreAnswerRejectsWrongTeamAndLateSubmission(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	m := newTestMatch(t, clk)
	mustActivate(t, m, clk)

	_, err := m.StoreAnswer(PlayerInfo{UserID: "u1", UserAffiliation: "Gamma"}, AnswerPayload{SelectedOption: 0})
	if err == nil {
		t.Fatalf("expected rejection for player not on either team")
	}

	clk.Advance(m.current.Duration + time.Minute)
	_, err = m.StoreAnswer(PlayerInfo{UserID: "u2", UserAffiliation: "Alpha"}, AnswerPayload{SelectedOption: 0})
	if err == nil {
		t.Fatalf("expected rejection for late submission")
	}
}

func TestVerifyAwardsPointsAndAdvances(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	m := newTestMatch(t, clk)
	mustActivate(t, m, clk)

	m.current.CorrectOption = 1
	if _, err := m.StoreAnswer(PlayerInfo{UserID: "u1", UserAffiliation: "Alpha"}, AnswerPayload{SelectedOption: 1}); err != nil {
		t.Fatalf("StoreAnswer: %v", err)
	}
	clk.Advance(m.current.Duration)

	views, err := m.Verify("")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 credited answer, got %d", len(views))
	}
	if m.homeScore != 10 {
		t.Fatalf("expected home score 10, got %v", m.homeScore)
	}

	// Idempotent replay against the now-used question.
	replay, err := m.Verify(m.used[0].QuestionID)
	if err != nil {
		t.Fatalf("replay Verify: %v", err)
	}
	if len(replay) != len(views) {
		t.Fatalf("replay returned a different answer set")
	}
}

func TestVerifyEndsMatchAfterFinalQuestion(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	m := newTestMatch(t, clk)
	mustActivate(t, m, clk)

	for i := 0; i < 4; i++ {
		clk.Set(m.current.SendAt.Add(m.current.Duration))
		if _, err := m.Verify(""); err != nil {
			t.Fatalf("Verify round %d: %v", i, err)
		}
	}
	if m.State() != StateCompleted {
		t.Fatalf("expected Completed after exhausting questions, got %v", m.State())
	}
}

func TestUpdateRequiresSuspended(t *testing.T) {
	clk := clock.NewFrozen(time.Unix(0, 0))
	m := newTestMatch(t, clk)
	home := "Zeta"
	if err := m.Update(nil, UpdateFields{HomeTeam: &home}); err == nil {
		t.Fatalf("expected rejection: match is not suspended")
	}
	if err := m.ChangeState(StateStandby); err != nil {
		t.Fatalf("Upcoming->Standby: %v", err)
	}
	if err := m.ChangeState(StateSuspended); err != nil {
		t.Fatalf("Standby->Suspended: %v", err)
	}
	if err := m.Update(nil, UpdateFields{HomeTeam: &home}); err != nil {
		t.Fatalf("Update while suspended: %v", err)
	}
	if m.homeTeam != "Zeta" {
		t.Fatalf("expected home team updated to Zeta, got %s", m.homeTeam)
	}
}

func mustActivate(t *testing.T, m *Match, clk *clock.Frozen) {
	t.Helper()
	if err := m.ChangeState(StateStandby); err != nil {
		t.Fatalf("Upcoming->Standby: %v", err)
	}
	if err := m.ChangeState(StateActive); err != nil {
		t.Fatalf("Standby->Active: %v", err)
	}
	clk.Advance(10 * time.Second)
}
