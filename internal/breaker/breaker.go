// Package breaker implements a three-state circuit breaker (Closed, Open,
// HalfOpen) guarding an outbound call with a probe-then-operate strategy.
// Adapted from the teacher's circuit_breaker package: the teacher's copy of
// breaker.go carried duplicate imports and an orphaned field declaration
// that kept it from compiling, so this is a clean reconstruction of the
// same design (State machine, Execute/onSuccess/onFailure), not a copy.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is one of the three circuit breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Execute when the breaker is open and the reset
// timeout has not yet elapsed.
var ErrOpen = errors.New("circuit breaker is open")

// ProbeFunc checks whether the guarded dependency looks healthy before the
// breaker transitions out of Open.
type ProbeFunc func(ctx context.Context) error

// Breaker wraps calls to an unreliable dependency, tripping to Open after
// MaxFailures consecutive failures and only probing again after
// ResetTimeout, closing once SuccessesToClose calls succeed in HalfOpen.
type Breaker struct {
	name   string
	cfg    Config
	probe  ProbeFunc
	logger *slog.Logger

	mu               sync.Mutex
	state            State
	consecFailures   int
	consecSuccesses  int
	openedAt         time.Time
}

// New constructs a Breaker in the Closed state.
func New(name string, cfg Config, probe ProbeFunc) *Breaker {
	return &Breaker{
		name:   name,
		cfg:    cfg,
		probe:  probe,
		logger: newLogger(cfg.LogFile),
		state:  Closed,
	}
}

// Execute runs op if the breaker's state allows it, tracking the outcome.
// When Open and the reset timeout has not elapsed, op is never called and
// ErrOpen is returned immediately.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.tryProbeThenOp(ctx); err != nil {
		return err
	}
	err := op(ctx)
	if err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

// tryProbeThenOp gates entry into op: Closed always proceeds, Open proceeds
// only after the reset timeout has elapsed AND the probe succeeds (at which
// point the breaker moves to HalfOpen), HalfOpen always proceeds (callers
// are already being probed one at a time via the caller's own
// serialization; this breaker does not limit HalfOpen concurrency beyond
// what the mutex naturally provides).
func (b *Breaker) tryProbeThenOp(ctx context.Context) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state != Open {
		return nil
	}
	if time.Since(openedAt) < b.cfg.ResetTimeout {
		return ErrOpen
	}
	if b.probe == nil {
		return ErrOpen
	}
	if err := b.probe(ctx); err != nil {
		b.logger.Warn("probe_failed", "breaker", b.name, "error", err)
		b.mu.Lock()
		b.openedAt = time.Now()
		b.mu.Unlock()
		return ErrOpen
	}
	b.mu.Lock()
	b.state = HalfOpen
	b.consecSuccesses = 0
	b.mu.Unlock()
	b.logger.Info("breaker_half_open", "breaker", b.name)
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.consecSuccesses++
		if b.consecSuccesses >= b.cfg.SuccessesToClose {
			b.state = Closed
			b.consecFailures = 0
			b.logger.Info("breaker_closed", "breaker", b.name)
		}
	case Closed:
		b.consecFailures = 0
	}
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.state = Open
		b.openedAt = time.Now()
		b.logger.Warn("breaker_reopened", "breaker", b.name, "error", err)
	case Closed:
		b.consecFailures++
		if b.consecFailures >= b.cfg.MaxFailures {
			b.state = Open
			b.openedAt = time.Now()
			b.logger.Warn("breaker_opened", "breaker", b.name, "error", err)
		}
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
