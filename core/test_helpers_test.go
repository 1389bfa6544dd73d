package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type transportStep struct {
	res TransportResponse
	err error
}

// scriptedTransport replays a scripted sequence of exchanges, or delegates
// to a handler when one is set. Every request it sees is recorded.
type scriptedTransport struct {
	mu       sync.Mutex
	requests []TransportRequest
	script   []transportStep
	handler  func(req TransportRequest) (TransportResponse, error)
}

func (s *scriptedTransport) Kind() string { return "scripted" }

func (s *scriptedTransport) Do(ctx context.Context, req TransportRequest) (TransportResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	handler := s.handler
	var step transportStep
	hasStep := false
	if handler == nil && len(s.script) > 0 {
		step = s.script[0]
		s.script = s.script[1:]
		hasStep = true
	}
	s.mu.Unlock()

	if handler != nil {
		return handler(req)
	}
	if hasStep {
		return step.res, step.err
	}
	return envelopeResponse(200, `{}`), nil
}

func (s *scriptedTransport) enqueue(res TransportResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, transportStep{res: res, err: err})
}

func (s *scriptedTransport) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedTransport) requestAt(index int) (TransportRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.requests) {
		return TransportRequest{}, false
	}
	return s.requests[index], true
}

func envelopeResponse(status int, data string) TransportResponse {
	if data == "" {
		data = "null"
	}
	body := fmt.Sprintf(
		`{"success":%t,"message":"ok","data":%s,"timestamp":"2026-08-20T10:00:00Z"}`,
		status >= 200 && status < 300, data,
	)
	return TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

// staticRefresher hands back a fixed outcome and counts invocations.
type staticRefresher struct {
	mu    sync.Mutex
	calls int
	pair  CredentialPair
	err   error
}

func (r *staticRefresher) Refresh(ctx context.Context) (CredentialPair, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return CredentialPair{}, r.err
	}
	return r.pair, nil
}

func (r *staticRefresher) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// recordingRateLimit captures the before/after traffic a pipeline produces.
type recordingRateLimit struct {
	mu        sync.Mutex
	beforeErr error
	before    []RateLimitKey
	afterKeys []RateLimitKey
	after     []ResponseMeta
}

func (r *recordingRateLimit) BeforeCall(ctx context.Context, key RateLimitKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = append(r.before, key)
	return r.beforeErr
}

func (r *recordingRateLimit) AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterKeys = append(r.afterKeys, key)
	r.after = append(r.after, res)
	return nil
}

func fastRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		Scheduler:  ExponentialBackoffScheduler{Base: time.Millisecond},
		Sleep: func(ctx context.Context, delay time.Duration) error {
			return nil
		},
	}
}
