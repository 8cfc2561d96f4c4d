package httpserver

import "github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"

// createMatchRequest is the PUT /matches/{id} admin request body.
type createMatchRequest struct {
	MatchType string  `json:"match_type"`
	HomeTeam  string  `json:"home_team"`
	AwayTeam  string  `json:"away_team"`
	Rounds    int     `json:"rounds"`
	QPR       int     `json:"qpr"`
	TPQSecs   []int   `json:"tpq"`
	PPQ       float64 `json:"ppq"`
}

// patchMatchRequest is the PATCH /matches/{id} admin request body. Exactly
// one of State or the other fields should be set per request, mirroring
// original_source/adapters/abstract.py's update_match dispatch.
type patchMatchRequest struct {
	State     *int     `json:"state,omitempty"`
	HomeTeam  *string  `json:"home_team,omitempty"`
	AwayTeam  *string  `json:"away_team,omitempty"`
	HomeScore *float64 `json:"home_score,omitempty"`
	AwayScore *float64 `json:"away_score,omitempty"`
	Rounds    *int     `json:"rounds,omitempty"`
	QPR       *int     `json:"qpr,omitempty"`
	PPQ       *float64 `json:"ppq,omitempty"`
}

// submitAnswerRequest is the POST /matches/{id} user request body.
type submitAnswerRequest struct {
	SelectedOption int `json:"selected_option"`
}

// matchExtendedView is the GET /matches/{id}?mode=extended response shape,
// embedding the current question (or an error sub-object describing why
// it is unavailable) per original_source/fimbulwinter.py:
// return_match_details_by_mode.
type matchExtendedView struct {
	matchcore.ShortView
	CurrentQuestion interface{} `json:"current_question"`
	Answers         interface{} `json:"answers"`
}

type errObj struct {
	Error string `json:"error"`
}

// messageObj is the {"message": "..."} body returned by the mutation
// endpoints that report a human-readable outcome rather than a projection
// of the match, matching original_source/ragnarok.py's add_match and
// update_match_state handlers.
type messageObj struct {
	Message string `json:"message"`
}
