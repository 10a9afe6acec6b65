package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct{ temp bool }

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) Temporary() bool { return e.temp }

func fastPolicy(attempts int) *RetryPolicy {
	return &RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
}

func TestRetryPolicyDelays(t *testing.T) {
	policy := DefaultRetryPolicy()
	for attempt, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		if got := policy.NextDelay(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}

	capped := &RetryPolicy{MaxAttempts: 10, InitialDelay: time.Second, Multiplier: 10, MaxDelay: 30 * time.Second}
	if got := capped.NextDelay(5); got != capped.MaxDelay {
		t.Errorf("expected delay capped at %v, got %v", capped.MaxDelay, got)
	}
}

func TestRetryPolicyClassification(t *testing.T) {
	policy := DefaultRetryPolicy()
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("something odd"), true},
		{errors.New("invalid request"), false},
		{errors.New("unauthorized"), false},
		{fmt.Errorf("wrap: %w", ErrPermanent), false},
		{fmt.Errorf("wrap: %w", context.Canceled), false},
		{fmt.Errorf("llm call: %w", statusErr{temp: true}), true},
		{fmt.Errorf("llm call: %w", statusErr{temp: false}), false},
	}
	for _, tc := range cases {
		if got := policy.ShouldRetry(tc.err, 1); got != tc.want {
			t.Errorf("%v: expected retry=%v, got %v", tc.err, tc.want, got)
		}
	}
	if policy.ShouldRetry(errors.New("timeout"), 3) {
		t.Error("should not retry on the last attempt")
	}
}

func TestRetryPolicyExecuteSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary failure")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyExecuteGivesUp(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Execute(context.Background(), func(context.Context) error {
		calls++
		return errors.New("timeout")
	})
	if err == nil || calls != 2 {
		t.Errorf("expected failure after 2 calls, got %v after %d", err, calls)
	}

	calls = 0
	fastPolicy(5).Execute(context.Background(), func(context.Context) error {
		calls++
		return ErrPermanent
	})
	if calls != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", calls)
	}
}

func TestRetryPolicyExecuteStopsOnCancel(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 1}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func(context.Context) error {
			calls++
			return errors.New("timeout")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
