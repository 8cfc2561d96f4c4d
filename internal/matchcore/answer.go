package matchcore

import "time"

// PlayerInfo is a snapshot of the submitting player's identity, captured at
// answer-storage time so later grading never needs to re-resolve identity.
type PlayerInfo struct {
	UserID          string
	UserName        string
	UserRole        string
	UserAffiliation string
}

// Answer is an immutable-by-convention record of a single submission. Values
// are never mutated in place; scoring produces a new Answer value with
// BasePoints/BonusPoints populated.
type Answer struct {
	PlayerInfo     PlayerInfo
	TimeReceived   time.Time
	SelectedOption int
	BasePoints     float64
	BonusPoints    float64
}

// AnswerPayload is the caller-supplied portion of a submission; PlayerInfo is
// always derived from the authenticated session, never from the payload.
type AnswerPayload struct {
	SelectedOption int
	// TimeReceived overrides the clock, mirroring the original's acceptance
	// of an explicit time_received field; nil means "use the match clock".
	TimeReceived *time.Time
}

// AnswerView is the JSON-facing projection of an Answer: user_id is stripped
// per spec.md §6 ("Answer JSON (returned from grading): user_id stripped").
type AnswerView struct {
	PlayerInfo   map[string]string `json:"player_info"`
	TimeReceived string            `json:"time_received"`
}

// View renders the answer for external consumption, stripping the user id.
func (a Answer) View() AnswerView {
	return AnswerView{
		PlayerInfo: map[string]string{
			"user_name":        a.PlayerInfo.UserName,
			"user_affiliation": a.PlayerInfo.UserAffiliation,
		},
		TimeReceived: a.TimeReceived.Format(time.RFC3339),
	}
}
