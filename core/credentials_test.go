package core

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryCredentialStorePairLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	if _, err := store.Pair(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials from a new store, got %v", err)
	}

	want := CredentialPair{Access: "access-1", Refresh: "refresh-1"}
	if err := store.SetPair(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pair, err := store.Pair(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair != want {
		t.Fatalf("expected %+v, got %+v", want, pair)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Pair(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials after clear, got %v", err)
	}
}

func TestMemoryCredentialStoreRejectsPartialPair(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	tests := []CredentialPair{
		{Access: "access-only"},
		{Refresh: "refresh-only"},
		{},
		{Access: "  ", Refresh: "refresh"},
	}
	for _, pair := range tests {
		if err := store.SetPair(ctx, pair); !errors.Is(err, ErrIncompleteCredentialPair) {
			t.Fatalf("pair %+v: expected ErrIncompleteCredentialPair, got %v", pair, err)
		}
	}

	if _, err := store.Pair(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("rejected writes must not leave partial state behind, got %v", err)
	}
}

func TestMemoryCredentialStorePairedUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.SetPair(ctx, CredentialPair{Access: "access", Refresh: "refresh"})
		}()
		go func() {
			defer wg.Done()
			_ = store.Clear(ctx)
		}()
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			pair, err := store.Pair(ctx)
			if err != nil {
				if errors.Is(err, ErrNoCredentials) {
					continue
				}
				t.Errorf("unexpected error: %v", err)
				return
			}
			hasAccess := pair.Access != ""
			hasRefresh := pair.Refresh != ""
			if hasAccess != hasRefresh {
				t.Errorf("observed partial pair: %+v", pair)
				return
			}
		}
	}()
	wg.Wait()
	close(done)
}

func TestMemoryCredentialStoreHonorsContext(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Pair(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if err := store.SetPair(ctx, CredentialPair{Access: "a", Refresh: "r"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
