package core

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNoCredentials is returned when an operation needs a stored pair and
	// none is present.
	ErrNoCredentials = errors.New("core: no stored credentials")
	// ErrIncompleteCredentialPair rejects writes that would leave the store
	// holding one credential without the other.
	ErrIncompleteCredentialPair = errors.New("core: credential pair requires both access and refresh values")
)

// ValidateCredentialPair enforces the pairing rule on writes: both values
// present, or the write is rejected.
func ValidateCredentialPair(pair CredentialPair) error {
	if strings.TrimSpace(pair.Access) == "" || strings.TrimSpace(pair.Refresh) == "" {
		return ErrIncompleteCredentialPair
	}
	return nil
}

// MemoryCredentialStore keeps the credential pair in process memory. Values
// are opaque strings; the store never inspects or decodes them.
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	pair CredentialPair
	set  bool
}

// NewMemoryCredentialStore returns an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

// Pair returns the stored pair, or ErrNoCredentials when the store holds
// none.
func (s *MemoryCredentialStore) Pair(ctx context.Context) (CredentialPair, error) {
	if s == nil {
		return CredentialPair{}, errors.New("core: memory credential store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return CredentialPair{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return CredentialPair{}, ErrNoCredentials
	}
	return s.pair, nil
}

// SetPair stores both credentials in one write. Partial pairs are rejected
// so the store can never hold one credential without the other.
func (s *MemoryCredentialStore) SetPair(ctx context.Context, pair CredentialPair) error {
	if s == nil {
		return errors.New("core: memory credential store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateCredentialPair(pair); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
	return nil
}

// Clear removes both credentials in one write. Clearing an empty store is a
// no-op.
func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	if s == nil {
		return errors.New("core: memory credential store not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = CredentialPair{}
	s.set = false
	return nil
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
