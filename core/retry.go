package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the number of extra attempts after the first
	// failure, so a retryable call makes at most four attempts total.
	DefaultMaxRetries = 3
	// DefaultRetryBaseDelay seeds the exponential backoff schedule.
	DefaultRetryBaseDelay = 1000 * time.Millisecond
	// DefaultRetryMaxDelay caps a single backoff wait.
	DefaultRetryMaxDelay = 30 * time.Second
)

// MethodRetryDefault is the per-method retry posture: idempotent reads
// retry by default, writes only when a caller opts in per request.
func MethodRetryDefault(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return false
	default:
		return false
	}
}

// BackoffScheduler computes how long to wait before a given retry attempt.
type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoffScheduler doubles the base delay per attempt:
// attempt 0 waits Base, attempt 1 waits 2*Base, attempt n waits Base*2^n,
// capped at Max when Max is positive.
type ExponentialBackoffScheduler struct {
	Base time.Duration
	Max  time.Duration
}

// NextDelay returns the wait before retry attempt (zero-based).
func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	base := s.Base
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if s.Max > 0 && delay >= s.Max {
			return s.Max
		}
	}
	if s.Max > 0 && delay > s.Max {
		return s.Max
	}
	return delay
}

var _ BackoffScheduler = ExponentialBackoffScheduler{}

// RetryPolicy runs an operation up to 1+MaxRetries times, waiting an
// exponentially growing delay between attempts. Only errors the classifier
// accepts are retried; everything else surfaces immediately. When the
// budget is exhausted the error from the final attempt surfaces unchanged.
type RetryPolicy struct {
	MaxRetries int
	Scheduler  BackoffScheduler
	Classifier func(err error) bool
	// Sleep is the wait primitive, injectable for tests. Defaults to a
	// context-aware timer wait.
	Sleep func(ctx context.Context, delay time.Duration) error
}

// DefaultRetryPolicy is the policy the pipeline applies when a caller does
// not override it: three extra attempts, one-second base delay, retrying
// the normalized retryable statuses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Scheduler:  ExponentialBackoffScheduler{Base: DefaultRetryBaseDelay, Max: DefaultRetryMaxDelay},
		Classifier: IsRetryable,
	}
}

// Run executes operation with the policy's retry budget. The attempt index
// passed to operation is zero-based.
func (p RetryPolicy) Run(ctx context.Context, operation func(ctx context.Context, attempt int) error) error {
	if operation == nil {
		return errors.New("core: retry operation is required")
	}

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	scheduler := p.Scheduler
	if scheduler == nil {
		scheduler = ExponentialBackoffScheduler{Base: DefaultRetryBaseDelay, Max: DefaultRetryMaxDelay}
	}
	classifier := p.Classifier
	if classifier == nil {
		classifier = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = waitWithContext
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = operation(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries || !classifier(lastErr) {
			return lastErr
		}
		if err := sleep(ctx, scheduler.NextDelay(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
