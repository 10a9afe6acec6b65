package gateway

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

// ErrPermanent marks an error that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

// temporary is implemented by errors that know whether they are transient,
// such as the model client's API errors.
type temporary interface {
	Temporary() bool
}

// Message fragments checked when an error carries no better signal.
// Permanent markers win over transient ones.
var (
	permanentMarkers = []string{"invalid", "unauthorized", "forbidden"}
	transientMarkers = []string{"connection refused", "connection reset", "timeout", "temporary failure"}
)

// RetryPolicy retries failed provider calls with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy allows three attempts starting at 1s, doubling up to 30s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

// NoRetry runs each call once.
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// ShouldRetry reports whether attempt (1-indexed) may be followed by another.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt < p.MaxAttempts && classify(err) == retryable
}

type verdict int

const (
	final verdict = iota
	retryable
)

func classify(err error) verdict {
	switch {
	case err == nil:
		return final
	case errors.Is(err, context.Canceled), errors.Is(err, ErrPermanent):
		return final
	}
	var t temporary
	if errors.As(err, &t) {
		if t.Temporary() {
			return retryable
		}
		return final
	}

	msg := strings.ToLower(err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return final
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return retryable
		}
	}
	// Unknown errors get another chance.
	return retryable
}

// NextDelay is InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Execute calls fn until it succeeds, fails permanently or runs out of
// attempts. Waiting between attempts ends early when ctx is done.
func (p *RetryPolicy) Execute(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= attempts || !p.ShouldRetry(err, attempt) {
			return err
		}

		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
