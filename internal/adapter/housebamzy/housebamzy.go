// Package housebamzy implements the HouseBamzy ruleset: a multiple-choice
// adapter with a consecutive-scorer multiplier and a fast-answer bonus.
// Grounded on original_source/adapters/HouseBamzy.py.
package housebamzy

import (
	"fmt"
	"sort"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

const (
	// recessDuration is the pause applied on Active -> Standby (HouseBamzy.py: RecessDuration).
	recessDuration = 120 * time.Second
	// fastAnswerWindow is W2S: answers within this window of send_at earn a bonus.
	fastAnswerWindow = 2 * time.Second
	// fastAnswerBonus is the flat bonus credited for a fast correct answer.
	fastAnswerBonus = 5.0
	optionCount     = 4
)

// Adapter implements matchcore.Adapter for the HouseBamzy ruleset.
type Adapter struct{}

// New returns a HouseBamzy adapter. It is stateless; one instance may be
// shared across matches.
func New() *Adapter {
	return &Adapter{}
}

// Name implements matchcore.Adapter.
func (Adapter) Name() string { return "HouseBamzy" }

// RecessDuration implements matchcore.Adapter.
func (Adapter) RecessDuration() time.Duration { return recessDuration }

// FetchQuestions generates exactly shape.Rounds*shape.QPR multiple-choice
// questions, applying shape.TPQ[r] as the time limit for every question in
// round r (spec.md §4.4 — one duration per round, applied to all of that
// round's questions).
func (Adapter) FetchQuestions(shape matchcore.MatchShape) ([]matchcore.Question, error) {
	points := shape.PPQ
	if points == 0 {
		points = 1
	}
	out := make([]matchcore.Question, 0, shape.Rounds*shape.QPR)
	for r := 0; r < shape.Rounds; r++ {
		duration := shape.TPQ[r]
		for i := 0; i < shape.QPR; i++ {
			options := make([]string, optionCount)
			for o := 0; o < optionCount; o++ {
				options[o] = fmt.Sprintf("option-%d", o+1)
			}
			out = append(out, matchcore.Question{
				QuestionID:    fmt.Sprintf("q-%d-%d", r+1, i+1),
				Text:          fmt.Sprintf("Round %d question %d", r+1, i+1),
				Points:        points,
				Duration:      duration,
				Options:       options,
				CorrectOption: 0,
			})
		}
	}
	return out, nil
}

// PickCorrectAnswers keeps only answers whose SelectedOption matches the
// question's CorrectOption, deduplicates by player (latest submission per
// user id wins), and returns only the single earliest correct answer
// (HouseBamzy.py:_get_correct_answers — "first correct answer wins").
func (Adapter) PickCorrectAnswers(q matchcore.Question, answers []matchcore.Answer) ([]matchcore.Answer, error) {
	latestByUser := make(map[string]matchcore.Answer)
	for _, a := range answers {
		if a.SelectedOption != q.CorrectOption {
			continue
		}
		existing, ok := latestByUser[a.PlayerInfo.UserID]
		if !ok || a.TimeReceived.After(existing.TimeReceived) {
			latestByUser[a.PlayerInfo.UserID] = a
		}
	}
	if len(latestByUser) == 0 {
		return nil, nil
	}
	correct := make([]matchcore.Answer, 0, len(latestByUser))
	for _, a := range latestByUser {
		correct = append(correct, a)
	}
	sort.Slice(correct, func(i, j int) bool {
		return correct[i].TimeReceived.Before(correct[j].TimeReceived)
	})
	return correct[:1], nil
}

// RecordCorrectAnswers applies the consecutive-scorer multiplier (x1/x2/x3,
// resetting to x1 after a x3 hat trick) walked backwards over the existing
// scorer ledger, plus a flat fast-answer bonus for submissions within
// fastAnswerWindow of the question's send time (HouseBamzy.py:
// _add_bonus_points, _record_correct_answers).
func (Adapter) RecordCorrectAnswers(sink matchcore.ScoreSink, q matchcore.Question, graded []matchcore.Answer, basePoints float64) error {
	if basePoints == 0 {
		basePoints = q.Points
	}
	for _, ans := range graded {
		multiplier := consecutiveMultiplier(sink.Scorers(), ans.PlayerInfo.UserID)
		base := basePoints * float64(multiplier)

		bonus := 0.0
		if q.SendAt != nil && ans.TimeReceived.Sub(*q.SendAt) <= fastAnswerWindow {
			bonus = fastAnswerBonus
		}

		if ans.PlayerInfo.UserAffiliation == sink.HomeTeam() {
			sink.CreditHome(ans, base, bonus)
		} else {
			sink.CreditAway(ans, base, bonus)
		}
	}
	return nil
}

// consecutiveMultiplier counts the run of consecutive scorer-ledger entries
// (walking from the most recent backwards) belonging to userID before this
// hit, and maps that prior-run length to a point multiplier: the first two
// consecutive hits score at x1, the third at x2, the fourth (the hat trick)
// at x3, after which the streak resets to x1. This is the single
// interpretation spec.md codifies for the source's ambiguous
// consecutive-goal counter (reset only after reaching x3).
func consecutiveMultiplier(scorers []matchcore.Answer, userID string) int {
	run := 0
	for i := len(scorers) - 1; i >= 0; i-- {
		if scorers[i].PlayerInfo.UserID != userID {
			break
		}
		run++
	}
	switch run % 4 {
	case 2:
		return 2
	case 3:
		return 3
	default:
		return 1
	}
}
