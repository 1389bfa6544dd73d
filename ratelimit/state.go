package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-florin/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// State is the observed rate-limit position for one endpoint group.
type State struct {
	Key            core.RateLimitKey
	Limit          int
	Remaining      int
	ResetAt        *time.Time
	RetryAfter     *time.Duration
	ThrottledUntil *time.Time
	LastStatus     int
	Attempts       int
	UpdatedAt      time.Time
	Metadata       map[string]any
}

// Clone deep-copies the state so callers can mutate the result without
// reaching into store internals. Times come back in UTC.
func (s State) Clone() State {
	cloned := s
	cloned.Metadata = cloneMap(s.Metadata)
	if s.ResetAt != nil {
		value := s.ResetAt.UTC()
		cloned.ResetAt = &value
	}
	if s.RetryAfter != nil {
		value := *s.RetryAfter
		cloned.RetryAfter = &value
	}
	if s.ThrottledUntil != nil {
		value := s.ThrottledUntil.UTC()
		cloned.ThrottledUntil = &value
	}
	return cloned
}

type StateStore interface {
	Get(ctx context.Context, key core.RateLimitKey) (State, error)
	Upsert(ctx context.Context, state State) error
}

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key core.RateLimitKey) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	normalized := normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[StateKey(normalized)]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return state.Clone(), nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	state = state.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[StateKey(state.Key)] = state
	return nil
}

// StateKey flattens a rate-limit key into the storage key durable stores
// index on.
func StateKey(key core.RateLimitKey) string {
	return key.Group + "|" + key.Method
}

func normalizeKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		Group:  strings.TrimSpace(strings.ToLower(key.Group)),
		Method: strings.TrimSpace(strings.ToUpper(key.Method)),
	}
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
