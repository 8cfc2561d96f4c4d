// Package matchcore implements the per-match state machine, question
// lifecycle, and concurrency-safe grading described in spec.md §3-§5.
package matchcore

import (
	"strconv"
	"sync"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/clock"
)

// State is the match lifecycle state (spec.md §3/§4.1).
type State int

const (
	StateInvalid   State = -99
	StateSuspended State = -1
	StateUpcoming  State = 0
	StateStandby   State = 1
	StateActive    State = 2
	StateCompleted State = 99
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateSuspended:
		return "Suspended"
	case StateUpcoming:
		return "Upcoming"
	case StateStandby:
		return "Standby"
	case StateActive:
		return "Active"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Config is the set of caller-supplied fields needed to construct a Match.
type Config struct {
	MatchID          string
	HomeTeam         string
	AwayTeam         string
	HomeScore        float64
	AwayScore        float64
	Rounds           int
	QPR              int
	TPQ              []time.Duration
	PPQ              float64
	CooldownDuration time.Duration
}

// Match is the per-match state machine. All mutation goes through the single
// mu lock: spec.md §5 requires store_answer, state transitions, and verify
// to be mutually exclusive against each other on the same match.
type Match struct {
	mu sync.Mutex

	clk     clock.Clock
	adapter Adapter

	matchID  string
	homeTeam string
	awayTeam string

	homeScore float64
	awayScore float64

	rounds int
	qpr    int
	tpq    []time.Duration
	ppq    float64

	state State

	scorers []Answer

	unused []Question
	used   []Question

	current        *Question
	currentAnswers map[string]Answer

	startTime *time.Time
	endTime   *time.Time

	cooldownDuration time.Duration
}

// New constructs a Match in the Upcoming state, validating the invariants
// from spec.md §3 (non-empty id, both teams, positive rounds/qpr, tpq long
// enough to cover every round).
func New(cfg Config, adapter Adapter, clk clock.Clock) (*Match, error) {
	if cfg.MatchID == "" {
		return nil, badRequest(msgMatchIDRequired)
	}
	if cfg.HomeTeam == "" || cfg.AwayTeam == "" {
		return nil, badRequest(msgTeamsRequired)
	}
	if cfg.Rounds <= 0 {
		return nil, badRequest(msgRoundsPositive)
	}
	if cfg.QPR <= 0 {
		return nil, badRequest(msgQPRPositive)
	}
	if len(cfg.TPQ) < cfg.Rounds {
		return nil, badRequest(msgTPQTooShort)
	}
	if adapter == nil {
		return nil, internal("adapter must not be nil")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	cooldown := cfg.CooldownDuration
	if cooldown == 0 {
		cooldown = 10 * time.Second
	}
	return &Match{
		clk:              clk,
		adapter:          adapter,
		matchID:          cfg.MatchID,
		homeTeam:         cfg.HomeTeam,
		awayTeam:         cfg.AwayTeam,
		homeScore:        cfg.HomeScore,
		awayScore:        cfg.AwayScore,
		rounds:           cfg.Rounds,
		qpr:              cfg.QPR,
		tpq:              append([]time.Duration(nil), cfg.TPQ...),
		ppq:              cfg.PPQ,
		state:            StateUpcoming,
		currentAnswers:   make(map[string]Answer),
		cooldownDuration: cooldown,
	}, nil
}

// MatchID returns the match's identifier.
func (m *Match) MatchID() string {
	return m.matchID
}

// State returns the current lifecycle state under lock.
func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HomeTeam implements ScoreSink.
func (m *Match) HomeTeam() string { return m.homeTeam }

// AwayTeam implements ScoreSink.
func (m *Match) AwayTeam() string { return m.awayTeam }

// Scorers implements ScoreSink; callers must hold m.mu (internal use only).
func (m *Match) Scorers() []Answer {
	return m.scorers
}

// CreditHome implements ScoreSink. Callers must hold m.mu.
func (m *Match) CreditHome(ans Answer, basePoints, bonusPoints float64) Answer {
	ans.BasePoints = basePoints
	ans.BonusPoints = bonusPoints
	m.homeScore += basePoints + bonusPoints
	m.scorers = append(m.scorers, ans)
	return ans
}

// CreditAway implements ScoreSink. Callers must hold m.mu.
func (m *Match) CreditAway(ans Answer, basePoints, bonusPoints float64) Answer {
	ans.BasePoints = basePoints
	ans.BonusPoints = bonusPoints
	m.awayScore += basePoints + bonusPoints
	m.scorers = append(m.scorers, ans)
	return ans
}

// ChangeState drives the transition matrix in spec.md §4.1. Any transition
// not present in the table is rejected with BadRequest.
func (m *Match) ChangeState(newState State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changeStateLocked(newState)
}

func (m *Match) changeStateLocked(newState State) error {
	if newState == m.state {
		return badRequest(msgAlreadyDesiredState)
	}
	switch newState {
	case StateUpcoming:
		if m.state != StateStandby {
			return badRequest("match must be 'standby' to reset to 'upcoming'")
		}
		m.resetLocked()
		return nil
	case StateStandby:
		switch m.state {
		case StateUpcoming, StateSuspended:
			return m.initLocked()
		case StateActive:
			return m.pauseLocked()
		default:
			return badRequest("match must be 'upcoming' or 'active' to change to 'standby'")
		}
	case StateActive:
		switch m.state {
		case StateStandby, StateSuspended:
			return m.startLocked()
		default:
			return badRequest("match must be 'standby' or 'suspended' to start")
		}
	case StateCompleted:
		switch m.state {
		case StateActive, StateSuspended:
			return m.endLocked()
		default:
			return badRequest("match must be 'active' or 'suspended' to complete")
		}
	case StateSuspended:
		switch m.state {
		case StateActive, StateStandby:
			m.state = StateSuspended
			return nil
		default:
			return badRequest("match must be 'active' or 'standby' to suspend")
		}
	case StateInvalid:
		switch m.state {
		case StateSuspended, StateUpcoming, StateStandby:
			m.state = StateInvalid
			return nil
		default:
			return badRequest("match must be 'suspended', 'upcoming', or 'standby' to cancel")
		}
	default:
		return badRequest(msgInvalidStateValue)
	}
}

func (m *Match) resetLocked() {
	m.homeScore, m.awayScore = 0, 0
	m.scorers = nil
	m.unused, m.used = nil, nil
	m.current = nil
	m.currentAnswers = make(map[string]Answer)
	m.state = StateUpcoming
	m.startTime = nil
	m.endTime = nil
}

func (m *Match) initLocked() error {
	m.state = StateStandby
	m.homeScore, m.awayScore = 0, 0
	m.scorers = nil
	m.current = nil
	m.currentAnswers = make(map[string]Answer)
	m.unused, m.used = nil, nil
	questions, err := m.adapter.FetchQuestions(MatchShape{Rounds: m.rounds, QPR: m.qpr, TPQ: m.tpq, PPQ: m.ppq})
	if err != nil {
		return err
	}
	m.unused = questions
	return nil
}

func (m *Match) startLocked() error {
	now := m.clk.Now()
	if m.startTime == nil {
		t := now.Add(m.cooldownDuration)
		m.startTime = &t
	} else if now.Before(*m.startTime) {
		return retryAt("cannot start before schedule", *m.startTime)
	}
	if m.homeTeam == "" || m.awayTeam == "" {
		return badRequest(msgTeamsRequired)
	}
	m.state = StateActive
	return m.prepNextLocked(nil)
}

func (m *Match) pauseLocked() error {
	m.state = StateStandby
	recess := m.adapter.RecessDuration()
	if recess > 0 {
		t := m.clk.Now().Add(recess)
		m.startTime = &t
	}
	return nil
}

func (m *Match) endLocked() error {
	if m.endTime == nil {
		t := m.clk.Now()
		m.endTime = &t
	}
	m.state = StateCompleted
	return nil
}

// PrepNext advances to the next unused question (spec.md §4.2). Returns
// NoMoreQuestions (BadRequest-kind) when unused is empty on entry.
func (m *Match) PrepNext(sendAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepNextLocked(sendAt)
}

func (m *Match) prepNextLocked(sendAt *time.Time) error {
	if m.state != StateActive {
		return badRequest(msgNotActive)
	}
	if len(m.unused) == 0 {
		return badRequest(msgNoMoreQuestions)
	}
	if m.current != nil {
		m.used = append(m.used, *m.current)
	}
	// Pop from the tail (LIFO): either direction is acceptable per spec.md
	// §9 so long as it is stable; this mirrors the original's list.pop().
	last := len(m.unused) - 1
	next := m.unused[last]
	m.unused = m.unused[:last]

	at := m.clk.Now().Add(m.cooldownDuration)
	if sendAt != nil {
		at = *sendAt
	}
	next.SendAt = &at
	m.current = &next
	m.currentAnswers = make(map[string]Answer)
	return nil
}

// GetCurrentQuestion returns a read-only view of the current question,
// enforcing the visibility window (spec.md §4.2).
func (m *Match) GetCurrentQuestion() (QuestionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.currentReadyLocked()
	if err != nil {
		return QuestionView{}, err
	}
	return q.View(), nil
}

func (m *Match) currentReadyLocked() (*Question, error) {
	if m.state != StateActive {
		return nil, badRequest(msgNotActive)
	}
	if m.current == nil || m.current.SendAt == nil {
		return nil, badRequest(msgNoCurrentQuestion)
	}
	now := m.clk.Now()
	if now.Before(*m.current.SendAt) {
		return nil, retryAt("current question is not ready", *m.current.SendAt)
	}
	if now.After(m.current.SendAt.Add(m.current.Duration)) {
		return nil, badRequest("current question time has expired")
	}
	return m.current, nil
}

// StoreAnswer records a player's latest answer for the current question
// (spec.md §4.2). Last write wins per player.
func (m *Match) StoreAnswer(player PlayerInfo, payload AnswerPayload) (AnswerView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return AnswerView{}, badRequest(msgNotActive)
	}
	if m.current == nil {
		return AnswerView{}, badRequest(msgNoCurrentQuestion)
	}
	if player.UserAffiliation != m.homeTeam && player.UserAffiliation != m.awayTeam {
		return AnswerView{}, badRequest(msgNotOnTeam)
	}
	if m.current.SendAt == nil {
		return AnswerView{}, badRequest("current question has no sent time set yet")
	}
	now := m.clk.Now()
	if now.Before(*m.current.SendAt) {
		return AnswerView{}, retryAt("cannot submit answer yet", *m.current.SendAt)
	}
	received := now
	if payload.TimeReceived != nil {
		received = *payload.TimeReceived
	}
	if received.Sub(*m.current.SendAt) > m.current.Duration {
		return AnswerView{}, badRequest(msgLateSubmission)
	}
	ans := Answer{
		PlayerInfo:     player,
		TimeReceived:   received,
		SelectedOption: payload.SelectedOption,
	}
	m.currentAnswers[player.UserID] = ans
	return ans.View(), nil
}

// Verify grades the current (or a previously-used) question exactly once
// and is safe under concurrent callers (spec.md §4.3).
func (m *Match) Verify(questionID string) ([]AnswerView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return nil, badRequest(msgNotActive)
	}

	if questionID == "" {
		if m.current == nil {
			return nil, badRequest("no current question to verify")
		}
		questionID = m.current.QuestionID
	}

	// Step 1: already-used question -> cached result or NotYetVerified.
	for i := range m.used {
		if m.used[i].QuestionID == questionID {
			if !m.used[i].Graded {
				return nil, badRequest(msgNotYetVerified)
			}
			return viewAll(m.used[i].Answers), nil
		}
	}

	// Step 2: must be the current question.
	if m.current == nil || m.current.QuestionID != questionID {
		return nil, notFound(msgUnknownQuestion)
	}
	q := m.current

	// Step 3: idempotent replay.
	if q.Graded {
		return viewAll(q.Answers), nil
	}

	// Grading a new question requires an active match.
	if m.state != StateActive {
		return nil, badRequest(msgNotActive)
	}

	// Step 4: time gate.
	if q.SendAt == nil {
		return nil, badRequest("current question has no sent time set yet")
	}
	gate := q.SendAt.Add(q.Duration)
	now := m.clk.Now()
	if now.Before(gate) {
		return nil, retryAt("cannot verify yet", gate)
	}

	// Step 5: snapshot submitted answers.
	snapshot := make([]Answer, 0, len(m.currentAnswers))
	for _, a := range m.currentAnswers {
		snapshot = append(snapshot, a)
	}
	qWithSnapshot := q.Clone()
	qWithSnapshot.Answers = snapshot

	// Step 6: grade via the adapter.
	graded, err := m.adapter.PickCorrectAnswers(qWithSnapshot, snapshot)
	if err != nil {
		return nil, err
	}
	qGraded := qWithSnapshot.Clone()
	qGraded.Answers = graded
	qGraded.Graded = true
	m.current = &qGraded

	// Step 7: award points (mutates scorers/scores via ScoreSink).
	if err := m.adapter.RecordCorrectAnswers(m, qGraded, graded, qGraded.Points); err != nil {
		return nil, err
	}

	// The adapter may have produced final per-answer point totals; re-read
	// the graded slice it credited (it was passed by value, so recover the
	// up-to-date totals from the scorer ledger tail).
	final := m.reconcileGradedLocked(qGraded, graded)
	qGraded.Answers = final
	m.current = &qGraded

	m.currentAnswers = make(map[string]Answer)

	// Step 8: advance; running out of questions ends the match but the
	// just-graded answers are still returned to the caller.
	if err := m.prepNextLocked(nil); err != nil {
		if derr, ok := err.(*Error); ok && derr.Message == msgNoMoreQuestions {
			m.endLocked()
			return viewAll(final), nil
		}
		return nil, err
	}

	return viewAll(final), nil
}

// reconcileGradedLocked matches the answers the adapter credited (by
// user id) against the scorer ledger tail so the cached graded list carries
// the same base/bonus totals the ledger recorded.
func (m *Match) reconcileGradedLocked(q Question, graded []Answer) []Answer {
	byUser := make(map[string]Answer, len(m.scorers))
	for i := len(m.scorers) - 1; i >= 0; i-- {
		uid := m.scorers[i].PlayerInfo.UserID
		if _, exists := byUser[uid]; !exists {
			byUser[uid] = m.scorers[i]
		}
	}
	out := make([]Answer, 0, len(graded))
	for _, a := range graded {
		if credited, ok := byUser[a.PlayerInfo.UserID]; ok {
			out = append(out, credited)
			continue
		}
		out = append(out, a)
	}
	return out
}

func viewAll(answers []Answer) []AnswerView {
	out := make([]AnswerView, len(answers))
	for i, a := range answers {
		out[i] = a.View()
	}
	return out
}

// UpdateFields carries the non-state attributes that may be changed while
// Suspended (spec.md §4.1: "Updating non-state attributes requires
// Suspended"). Go has no setattr, so every mutable field is explicit here.
type UpdateFields struct {
	HomeTeam  *string
	AwayTeam  *string
	HomeScore *float64
	AwayScore *float64
	Rounds    *int
	QPR       *int
	PPQ       *float64
}

// Update applies either a state change (if State is non-nil) or the other
// mutable fields (requires Suspended).
func (m *Match) Update(state *State, fields UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state != nil {
		return m.changeStateLocked(*state)
	}
	if m.state != StateSuspended {
		return badRequest(msgMustBeSuspended)
	}
	if fields.HomeTeam != nil {
		m.homeTeam = *fields.HomeTeam
	}
	if fields.AwayTeam != nil {
		m.awayTeam = *fields.AwayTeam
	}
	if fields.HomeScore != nil {
		m.homeScore = *fields.HomeScore
	}
	if fields.AwayScore != nil {
		m.awayScore = *fields.AwayScore
	}
	if fields.Rounds != nil {
		m.rounds = *fields.Rounds
	}
	if fields.QPR != nil {
		m.qpr = *fields.QPR
	}
	if fields.PPQ != nil {
		m.ppq = *fields.PPQ
	}
	return nil
}

// ShortView is the JSON-facing match-short projection (spec.md §6).
type ShortView struct {
	MatchID   string       `json:"match_id"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	HomeScore float64      `json:"home_score"`
	AwayScore float64      `json:"away_score"`
	Rounds    int          `json:"rounds"`
	State     int          `json:"state"`
	Scorers   []AnswerView `json:"scorers"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Progress  string       `json:"progress"`
}

// Short renders the match-short view.
func (m *Match) Short() ShortView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shortLocked()
}

func (m *Match) shortLocked() ShortView {
	start, end := "", ""
	if m.startTime != nil {
		start = m.startTime.Format(time.RFC3339)
	}
	if m.endTime != nil {
		end = m.endTime.Format(time.RFC3339)
	}
	total := m.rounds * m.qpr
	return ShortView{
		MatchID:   m.matchID,
		HomeTeam:  m.homeTeam,
		AwayTeam:  m.awayTeam,
		HomeScore: m.homeScore,
		AwayScore: m.awayScore,
		Rounds:    m.rounds,
		State:     int(m.state),
		Scorers:   viewAll(m.scorers),
		StartTime: start,
		EndTime:   end,
		Progress:  progressString(len(m.used), total),
	}
}

func progressString(used, total int) string {
	return strconv.Itoa(used) + "/" + strconv.Itoa(total)
}

// StartTime returns the match's scheduled start instant, if any, used by the
// registry's filter_by_date operation.
func (m *Match) StartTime() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startTime == nil {
		return nil
	}
	t := *m.startTime
	return &t
}

// Snapshot returns a Config capturing enough state to recreate this match's
// configuration (teams, scores, schedule) across a process restart. Question
// progress is intentionally not captured: the persisted Store is a
// best-effort placeholder (see internal/persistence), and re-fetching
// questions from the adapter on restart is acceptable for this system.
func (m *Match) Snapshot() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Config{
		MatchID:   m.matchID,
		HomeTeam:  m.homeTeam,
		AwayTeam:  m.awayTeam,
		HomeScore: m.homeScore,
		AwayScore: m.awayScore,
		Rounds:    m.rounds,
		QPR:       m.qpr,
		TPQ:       append([]time.Duration(nil), m.tpq...),
		PPQ:       m.ppq,
	}
}
