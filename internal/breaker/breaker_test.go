package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cfg := Config{MaxFailures: 2, ResetTimeout: time.Hour, SuccessesToClose: 1}
	b := New("test", cfg, nil)

	failing := func(ctx context.Context) error { return errors.New("boom") }

	if err := b.Execute(context.Background(), failing); err == nil {
		t.Fatalf("expected first failure to propagate")
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after 1 failure with MaxFailures=2, got %v", b.State())
	}
	if err := b.Execute(context.Background(), failing); err == nil {
		t.Fatalf("expected second failure to propagate")
	}
	if b.State() != Open {
		t.Fatalf("expected Open after 2 consecutive failures, got %v", b.State())
	}

	if err := b.Execute(context.Background(), failing); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen while breaker is open and reset timeout unelapsed, got %v", err)
	}
}

func TestBreakerHalfOpenClosesAfterProbeAndSuccess(t *testing.T) {
	cfg := Config{MaxFailures: 1, ResetTimeout: time.Millisecond, SuccessesToClose: 1}
	probeOK := true
	b := New("test", cfg, func(ctx context.Context) error {
		if probeOK {
			return nil
		}
		return errors.New("probe failed")
	})

	failing := func(ctx context.Context) error { return errors.New("boom") }
	_ = b.Execute(context.Background(), failing)
	if b.State() != Open {
		t.Fatalf("expected Open after 1 failure with MaxFailures=1, got %v", b.State())
	}

	time.Sleep(2 * time.Millisecond)
	succeeding := func(ctx context.Context) error { return nil }
	if err := b.Execute(context.Background(), succeeding); err != nil {
		t.Fatalf("expected op to run after successful probe, got %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("expected Closed after a successful HalfOpen probe+op, got %v", b.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cfg := Config{MaxFailures: 1, ResetTimeout: time.Millisecond, SuccessesToClose: 1}
	b := New("test", cfg, func(ctx context.Context) error { return nil })

	failing := func(ctx context.Context) error { return errors.New("boom") }
	_ = b.Execute(context.Background(), failing)
	time.Sleep(2 * time.Millisecond)
	_ = b.Execute(context.Background(), failing)
	if b.State() != Open {
		t.Fatalf("expected Open again after HalfOpen op failure, got %v", b.State())
	}
}
